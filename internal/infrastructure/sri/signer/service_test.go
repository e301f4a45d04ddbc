package signer

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"math/big"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCertificate genera una llave RSA y un certificado autofirmado para los tests.
func testCertificate(t *testing.T) (tls.Certificate, *x509.Certificate) {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(123456789),
		Subject: pkix.Name{
			CommonName:   "COMERCIAL ANDINA S.A.",
			Organization: []string{"Comercial Andina"},
			Country:      []string{"EC"},
		},
		NotBefore:   time.Now().Add(-time.Hour),
		NotAfter:    time.Now().Add(24 * time.Hour),
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)

	parsed, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  priv,
	}, parsed
}

const testFacturaXML = `<?xml version="1.0" encoding="UTF-8"?>
<factura id="comprobante" version="1.1.0">
  <infoTributaria>
    <ambiente>1</ambiente>
    <ruc>1790012345001</ruc>
    <claveAcceso>0101202401179001234500110010010000000010000000010</claveAcceso>
  </infoTributaria>
  <detalles>
    <detalle>
      <descripcion>Teclado mecánico</descripcion>
    </detalle>
  </detalles>
</factura>`

func TestSign_InyectaFirmaComoUltimoHijo(t *testing.T) {
	svc := NewXadesSignatureService()
	cert, _ := testCertificate(t)

	signed, err := svc.Sign([]byte(testFacturaXML), cert)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(signed), "el XML firmado debe seguir siendo bien formado")

	root := doc.Root()
	require.NotNil(t, root)
	assert.Equal(t, "factura", root.Tag)

	children := root.ChildElements()
	require.NotEmpty(t, children)
	last := children[len(children)-1]
	assert.Equal(t, "Signature", last.Tag,
		"la firma enveloped debe colgarse como último hijo del comprobante")
	assert.Equal(t, NamespaceDS, last.NamespaceURI())

	// El contenido original no se altera
	assert.NotNil(t, doc.FindElement("//infoTributaria/claveAcceso"))
	assert.NotNil(t, doc.FindElement("//detalles/detalle/descripcion"))
}

func TestSign_EstructuraXMLDSig(t *testing.T) {
	svc := NewXadesSignatureService()
	cert, x509Cert := testCertificate(t)

	signed, err := svc.Sign([]byte(testFacturaXML), cert)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(signed))

	sig := doc.FindElement("//Signature")
	require.NotNil(t, sig)

	// SignedInfo con Reference al comprobante y digest SHA-1
	ref := sig.FindElement("SignedInfo/Reference")
	require.NotNil(t, ref)
	assert.Equal(t, "#comprobante", ref.SelectAttrValue("URI", ""))
	assert.Equal(t, AlgSHA1, ref.FindElement("DigestMethod").SelectAttrValue("Algorithm", ""))
	assert.NotEmpty(t, ref.FindElement("DigestValue").Text())

	sigMethod := sig.FindElement("SignedInfo/SignatureMethod")
	require.NotNil(t, sigMethod)
	assert.Equal(t, AlgRSASHA1, sigMethod.SelectAttrValue("Algorithm", ""))

	// SignatureValue: Base64 decodificable y del tamaño de la llave RSA
	sigValue := sig.FindElement("SignatureValue")
	require.NotNil(t, sigValue)
	raw, err := base64.StdEncoding.DecodeString(sigValue.Text())
	require.NoError(t, err)
	assert.Len(t, raw, 256, "una llave RSA-2048 produce firmas de 256 bytes")

	// KeyInfo con el certificado embebido
	certEl := sig.FindElement("KeyInfo/X509Data/X509Certificate")
	require.NotNil(t, certEl)
	certRaw, err := base64.StdEncoding.DecodeString(certEl.Text())
	require.NoError(t, err)
	assert.Equal(t, x509Cert.Raw, certRaw)
}

func TestSign_PropiedadesXAdES(t *testing.T) {
	svc := NewXadesSignatureService()
	cert, x509Cert := testCertificate(t)

	signed, err := svc.Sign([]byte(testFacturaXML), cert)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(signed))

	props := doc.FindElement("//Signature/Object/QualifyingProperties/SignedProperties")
	require.NotNil(t, props, "XAdES-BES exige SignedProperties")

	signingTime := props.FindElement("SignedSignatureProperties/SigningTime")
	require.NotNil(t, signingTime)
	_, err = time.Parse("2006-01-02T15:04:05Z", signingTime.Text())
	assert.NoError(t, err, "SigningTime debe ser UTC con formato ISO")

	// CertDigest debe corresponder al SHA-1 del certificado
	digestEl := props.FindElement("SignedSignatureProperties/SigningCertificate/Cert/CertDigest/DigestValue")
	require.NotNil(t, digestEl)
	wantDigest := sha1.Sum(x509Cert.Raw)
	assert.Equal(t, base64.StdEncoding.EncodeToString(wantDigest[:]), digestEl.Text())

	serial := props.FindElement("SignedSignatureProperties/SigningCertificate/Cert/IssuerSerial/X509SerialNumber")
	require.NotNil(t, serial)
	assert.Equal(t, "123456789", serial.Text())
}

func TestSign_FirmaVerificable(t *testing.T) {
	svc := NewXadesSignatureService()
	cert, x509Cert := testCertificate(t)

	signed, err := svc.Sign([]byte(testFacturaXML), cert)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(signed))

	// Reconstruir SignedInfo canónico tal como lo arma el servicio y verificar
	// SignatureValue contra la llave pública del certificado.
	digest := doc.FindElement("//Signature/SignedInfo/Reference/DigestValue").Text()
	signedInfoXML := svc.buildSignedInfo(digest)
	canonical, err := canonicalizeXML([]byte(signedInfoXML))
	require.NoError(t, err)
	hash := sha1.Sum(canonical)

	sigValue := doc.FindElement("//Signature/SignatureValue")
	require.NotNil(t, sigValue)
	raw, err := base64.StdEncoding.DecodeString(sigValue.Text())
	require.NoError(t, err)

	pub, ok := x509Cert.PublicKey.(*rsa.PublicKey)
	require.True(t, ok)
	assert.NoError(t, rsa.VerifyPKCS1v15(pub, crypto.SHA1, hash[:], raw),
		"SignatureValue debe verificar contra la llave pública del certificado")
}

func TestSign_Errores(t *testing.T) {
	svc := NewXadesSignatureService()
	cert, _ := testCertificate(t)

	// XML vacío
	_, err := svc.Sign(nil, cert)
	assert.Error(t, err)

	// Certificado sin llave RSA
	_, err = svc.Sign([]byte(testFacturaXML), tls.Certificate{})
	assert.Error(t, err)

	// Documento sin el elemento id="comprobante"
	_, err = svc.Sign([]byte(`<otro id="nada"><x>1</x></otro>`), cert)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "comprobante")
}

func TestSign_AtributoIdEnMayusculas(t *testing.T) {
	svc := NewXadesSignatureService()
	cert, _ := testCertificate(t)

	// Algunos generadores emiten Id o ID en lugar de id
	signed, err := svc.Sign([]byte(`<factura Id="comprobante" version="1.1.0"><x>1</x></factura>`), cert)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(signed))
	assert.NotNil(t, doc.FindElement("//Signature"))
}
