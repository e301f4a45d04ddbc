package billing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jcisneros/facturacion-sri/internal/domain"
)

// NextSequential calcula el siguiente secuencial de una secuencia.
//
// lastIssued es el secuencial del último comprobante emitido con la secuencia
// (vacío si todavía no hay ninguno); seedCode es el código semilla de la
// secuencia. El siguiente número es lastIssued+1 con el mismo ancho de
// padding; sin emisiones previas, seedCode+1 con el ancho del código.
//
// Un valor almacenado no numérico es un error duro: continuar inventando
// números rompería la numeración autorizada del punto de emisión.
func NextSequential(lastIssued, seedCode string) (string, error) {
	source := strings.TrimSpace(lastIssued)
	if source == "" {
		source = strings.TrimSpace(seedCode)
	}
	if source == "" {
		return "", fmt.Errorf("secuencia sin semilla ni emisiones previas: %w", domain.ErrSecuenciaInvalida)
	}

	n, err := strconv.ParseInt(source, 10, 64)
	if err != nil {
		return "", fmt.Errorf("secuencial almacenado %q no numérico: %w", source, domain.ErrSecuenciaInvalida)
	}

	return fmt.Sprintf("%0*d", len(source), n+1), nil
}

// PadSequential rellena a 9 dígitos el secuencial para la clave de acceso y
// el XML (la BD puede guardar secuencias con menos ancho).
func PadSequential(seq string) string {
	if len(seq) >= 9 {
		return seq
	}
	return strings.Repeat("0", 9-len(seq)) + seq
}
