// Package credential resuelve el material de firma de cada empresa: localiza
// el .p12 en el directorio de certificados, descifra su contraseña y valida
// el periodo de vigencia. Los certificados nunca viajan por HTTP.
package credential

import (
	"context"
	"crypto/tls"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jcisneros/facturacion-sri/internal/application/billing"
	"github.com/jcisneros/facturacion-sri/internal/domain"
	"github.com/jcisneros/facturacion-sri/internal/domain/entity"
	"github.com/jcisneros/facturacion-sri/internal/infrastructure/sri/signer"
	"github.com/jcisneros/facturacion-sri/pkg/cipher"
)

// Store implementa billing.CredentialStore sobre el sistema de archivos.
type Store struct {
	certDir       string
	encryptionKey string
	now           func() time.Time
}

// NewStore construye el store. now se puede sobreescribir en tests.
func NewStore(certDir, encryptionKey string) *Store {
	return &Store{certDir: certDir, encryptionKey: encryptionKey, now: time.Now}
}

// Load resuelve el certificado de la empresa validando la vigencia registrada.
func (s *Store) Load(ctx context.Context, e *entity.Enterprise) (tls.Certificate, error) {
	if e.ElectronicSignature == "" {
		return tls.Certificate{}, fmt.Errorf("la empresa %s no tiene certificado de firma registrado: %w", e.RUC, domain.ErrNotFound)
	}

	now := s.now()
	if e.SignatureFrom != nil && now.Before(*e.SignatureFrom) {
		return tls.Certificate{}, fmt.Errorf("vigencia inicia %s: %w", e.SignatureFrom.Format("2006-01-02"), domain.ErrCertificadoVencido)
	}
	if e.SignatureUntil != nil && now.After(*e.SignatureUntil) {
		return tls.Certificate{}, fmt.Errorf("vigencia terminó %s: %w", e.SignatureUntil.Format("2006-01-02"), domain.ErrCertificadoVencido)
	}

	password := ""
	if e.KeySignature != "" {
		plain, err := cipher.Decrypt(s.encryptionKey, e.KeySignature)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("descifrar contraseña del certificado: %w", err)
		}
		password = plain
	}

	path := filepath.Join(s.certDir, e.ElectronicSignature)
	cert, err := signer.LoadFromP12(path, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("cargar certificado de %s: %w", e.RUC, err)
	}
	return cert, nil
}

var _ billing.CredentialStore = (*Store)(nil)
