// Clave de acceso de 49 dígitos para comprobantes electrónicos SRI.
// Estructura: fecha(8) + codDoc(2) + RUC(13) + ambiente(1) + serie(6) +
// secuencial(9) + código numérico(8) + tipo emisión(1) + dígito verificador(1).

package sri

import (
	"fmt"
	"math/rand"
	"time"
)

// AccessKeyLength longitud total de la clave de acceso.
const AccessKeyLength = 49

// RandomSource provee el código numérico de 8 dígitos de la clave.
// Se inyecta para que la generación sea determinista en tests.
type RandomSource interface {
	NumericCode() int // 0..99999999
}

// MathRandSource implementación por defecto sobre math/rand.
type MathRandSource struct {
	rng *rand.Rand
}

// NewMathRandSource crea la fuente con semilla del reloj.
func NewMathRandSource() *MathRandSource {
	return &MathRandSource{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NumericCode devuelve un entero aleatorio en [0, 99999999].
func (s *MathRandSource) NumericCode() int {
	return s.rng.Intn(100000000)
}

// AccessKeyParams datos de entrada para generar la clave de acceso.
type AccessKeyParams struct {
	EmissionDate time.Time
	DocType      string // "01" factura, "04" nota de crédito
	RUC          string // 13 dígitos (se rellena a la izquierda si viene corto)
	Environment  string // "1" pruebas, "2" producción
	Estab        string // código de establecimiento, 3 dígitos
	PtoEmi       string // código de punto de emisión, 3 dígitos
	Sequential   string // secuencial de 9 dígitos
}

// AccessKeyGenerator genera claves de acceso con una fuente de aleatoriedad inyectada.
type AccessKeyGenerator struct {
	random RandomSource
}

// NewAccessKeyGenerator construye el generador. random no puede ser nil.
func NewAccessKeyGenerator(random RandomSource) *AccessKeyGenerator {
	return &AccessKeyGenerator{random: random}
}

// Generate arma los 48 dígitos de datos y calcula el dígito verificador módulo 11.
func (g *AccessKeyGenerator) Generate(p AccessKeyParams) (string, error) {
	if p.DocType == "" || p.RUC == "" || p.Environment == "" {
		return "", fmt.Errorf("sri: clave de acceso requiere tipo de comprobante, RUC y ambiente")
	}
	if len(p.Estab) != 3 || len(p.PtoEmi) != 3 {
		return "", fmt.Errorf("sri: establecimiento y punto de emisión deben tener 3 dígitos (%q, %q)", p.Estab, p.PtoEmi)
	}
	if len(p.Sequential) != 9 {
		return "", fmt.Errorf("sri: el secuencial debe tener 9 dígitos (%q)", p.Sequential)
	}

	payload := p.EmissionDate.Format("02012006") +
		p.DocType +
		fmt.Sprintf("%013s", p.RUC) +
		p.Environment +
		p.Estab + p.PtoEmi +
		p.Sequential +
		fmt.Sprintf("%08d", g.random.NumericCode()) +
		EmisionNormal

	digit, err := CheckDigit(payload)
	if err != nil {
		return "", err
	}
	return payload + fmt.Sprintf("%d", digit), nil
}

// CheckDigit calcula el dígito verificador módulo 11 sobre los 48 dígitos de
// datos. Los pesos 2..7 se aplican en ciclo desde el dígito más a la derecha.
// 11 - (suma mod 11): 11 se convierte en 0 y 10 en 1.
func CheckDigit(payload string) (int, error) {
	if len(payload) != AccessKeyLength-1 {
		return 0, fmt.Errorf("sri: la clave de acceso lleva %d dígitos de datos, recibidos %d", AccessKeyLength-1, len(payload))
	}
	weights := [6]int{2, 3, 4, 5, 6, 7}
	sum := 0
	for i := 0; i < len(payload); i++ {
		c := payload[len(payload)-1-i]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("sri: la clave de acceso solo admite dígitos, encontrado %q", c)
		}
		sum += int(c-'0') * weights[i%6]
	}
	digit := 11 - (sum % 11)
	switch digit {
	case 11:
		digit = 0
	case 10:
		digit = 1
	}
	return digit, nil
}

// Verify valida longitud, que todo sean dígitos y que el verificador coincida.
func Verify(key string) error {
	if len(key) != AccessKeyLength {
		return fmt.Errorf("sri: la clave de acceso debe tener %d dígitos, tiene %d", AccessKeyLength, len(key))
	}
	digit, err := CheckDigit(key[:AccessKeyLength-1])
	if err != nil {
		return err
	}
	if key[AccessKeyLength-1] != byte('0'+digit) {
		return fmt.Errorf("sri: dígito verificador inválido: esperado %d, tiene %c", digit, key[AccessKeyLength-1])
	}
	return nil
}
