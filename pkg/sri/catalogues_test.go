package sri_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcisneros/facturacion-sri/pkg/sri"
)

func TestIVAPercentageCode_TarifasDeCatalogo(t *testing.T) {
	cases := []struct {
		rate string
		code string
	}{
		{"0", "0"},
		{"12", "2"},
		{"14", "3"},
		{"15", "4"},
		{"15.00", "4"}, // misma tarifa con otra escala
	}
	for _, tc := range cases {
		rate, err := decimal.NewFromString(tc.rate)
		require.NoError(t, err)

		code, err := sri.IVAPercentageCode(rate)
		require.NoError(t, err, "tarifa %s", tc.rate)
		assert.Equal(t, tc.code, code, "tarifa %s", tc.rate)
	}
}

func TestIVAPercentageCode_TarifaFueraDeCatalogo(t *testing.T) {
	// Una tarifa fraccionaria no se degrada al código de su parte entera:
	// mejor fallar aquí que emitir un XML que el SRI devuelve.
	for _, raw := range []string{"12.5", "13", "14.9", "15.5", "-12"} {
		rate, err := decimal.NewFromString(raw)
		require.NoError(t, err)

		_, err = sri.IVAPercentageCode(rate)
		assert.Error(t, err, "tarifa %s", raw)
	}
}

func TestIdentificationCode(t *testing.T) {
	assert.Equal(t, sri.IdentRUC, sri.IdentificationCode("1790012345001"))
	assert.Equal(t, sri.IdentCedula, sri.IdentificationCode("1713175071"))
	assert.Equal(t, sri.IdentConsumidorFinal, sri.IdentificationCode(sri.ConsumidorFinalDNI))
	assert.Equal(t, sri.IdentPasaporte, sri.IdentificationCode("AB123456"))
}
