// Package cipher cifra y descifra secretos cortos (contraseñas de los .p12)
// con AES-256-CBC. El IV se antepone al texto cifrado y el resultado se
// codifica en Base64, compatible con los valores ya almacenados en BD.
package cipher

import (
	"crypto/aes"
	aescipher "crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// Encrypt cifra plaintext con la clave dada y devuelve Base64(IV || cifrado).
func Encrypt(key, plaintext string) (string, error) {
	block, err := aes.NewCipher(normalizeKey(key))
	if err != nil {
		return "", fmt.Errorf("cipher: crear AES: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("cipher: generar IV: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, aes.BlockSize+len(padded))
	copy(out, iv)
	aescipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt descifra un valor producido por Encrypt (o por el sistema que pobló la BD).
func Decrypt(key, encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("cipher: Base64 inválido: %w", err)
	}
	if len(raw) < aes.BlockSize || len(raw)%aes.BlockSize != 0 {
		return "", fmt.Errorf("cipher: longitud de cifrado inválida (%d bytes)", len(raw))
	}

	block, err := aes.NewCipher(normalizeKey(key))
	if err != nil {
		return "", fmt.Errorf("cipher: crear AES: %w", err)
	}

	iv, body := raw[:aes.BlockSize], raw[aes.BlockSize:]
	plain := make([]byte, len(body))
	aescipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)

	unpadded, err := pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

// normalizeKey acepta la clave como hex de 64 caracteres (32 bytes) o como
// texto plano, que se recorta/rellena con ceros a 32 bytes.
func normalizeKey(key string) []byte {
	if len(key) == 64 {
		if raw, err := hex.DecodeString(key); err == nil {
			return raw
		}
	}
	out := make([]byte, 32)
	copy(out, key)
	return out
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	pad := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+pad)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(pad)
	}
	return out
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cipher: cifrado vacío")
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > blockSize || pad > len(data) {
		return nil, fmt.Errorf("cipher: padding PKCS7 inválido")
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, fmt.Errorf("cipher: padding PKCS7 inválido")
		}
	}
	return data[:len(data)-pad], nil
}
