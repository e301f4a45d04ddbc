package sri

import "crypto/tls"

// Signer define el puerto de firma XAdES del comprobante. La implementación
// concreta vive en infraestructura; para tests se puede inyectar un mock.
type Signer interface {
	// Sign firma el XML con el certificado y devuelve el documento con la
	// firma envuelta como último hijo del elemento raíz.
	Sign(xmlBytes []byte, cert tls.Certificate) ([]byte, error)
}
