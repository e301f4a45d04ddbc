package cipher_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcisneros/facturacion-sri/pkg/cipher"
)

const testKey = "clave-de-cifrado-para-tests"

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	secreto := "contraseña-del-p12"

	enc, err := cipher.Encrypt(testKey, secreto)
	require.NoError(t, err)
	assert.NotEqual(t, secreto, enc)

	plain, err := cipher.Decrypt(testKey, enc)
	require.NoError(t, err)
	assert.Equal(t, secreto, plain)
}

// TestEncrypt_IVAleatorio verifica que dos cifrados del mismo texto difieren
// (el IV se genera por llamada y va antepuesto al cifrado).
func TestEncrypt_IVAleatorio(t *testing.T) {
	e1, err1 := cipher.Encrypt(testKey, "mismo-texto")
	e2, err2 := cipher.Encrypt(testKey, "mismo-texto")

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.NotEqual(t, e1, e2)
}

func TestDecrypt_ErrorConClaveIncorrecta(t *testing.T) {
	enc, err := cipher.Encrypt(testKey, "secreto")
	require.NoError(t, err)

	plain, err := cipher.Decrypt("otra-clave-distinta", enc)
	if err == nil {
		// Con clave incorrecta el padding casi siempre falla; si por azar
		// es válido, el texto recuperado no puede ser el original.
		assert.NotEqual(t, "secreto", plain)
	}
}

func TestDecrypt_ErrorConBase64Invalido(t *testing.T) {
	_, err := cipher.Decrypt(testKey, "esto no es base64 !!")
	assert.Error(t, err)
}

func TestDecrypt_ErrorConCifradoCorto(t *testing.T) {
	_, err := cipher.Decrypt(testKey, "QUJD") // 3 bytes, menor que un bloque
	assert.Error(t, err)
}
