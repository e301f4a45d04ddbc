package entity

import "time"

// Enterprise empresa emisora de comprobantes electrónicos.
type Enterprise struct {
	ID                  string
	RUC                 string
	CompanyName         string // Razón social
	CommercialName      string // Nombre comercial
	MatrixAddress       string // Dirección matriz
	ObligatedAccounting string // 'Y' | 'N' (obligado a llevar contabilidad)
	Environment         string // "1" pruebas, "2" producción; vacío = ambiente global de la app
	ElectronicSignature string // Nombre del archivo .p12 dentro del directorio de certificados
	KeySignature        string // Contraseña del .p12 cifrada (AES-CBC, Base64 con IV antepuesto)
	SignatureFrom       *time.Time
	SignatureUntil      *time.Time
	Phone               string
	Email               string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
