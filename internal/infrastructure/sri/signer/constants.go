// Constantes para firma XAdES-BES de comprobantes SRI.
//
// El esquema offline del SRI sigue exigiendo SHA-1 y RSA-SHA1; los algoritmos
// modernos producen comprobantes DEVUELTOS.

package signer

// Namespaces y algoritmos XMLDSig / XAdES.
const (
	NamespaceDS    = "http://www.w3.org/2000/09/xmldsig#"
	NamespaceXAdES = "http://uri.etsi.org/01903/v1.3.2#"
	AlgC14N        = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	AlgRSASHA1     = "http://www.w3.org/2000/09/xmldsig#rsa-sha1"
	AlgSHA1        = "http://www.w3.org/2000/09/xmldsig#sha1"

	TransformEnveloped = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
)

// ComprobanteElementID es el id del elemento raíz al que apunta la Reference.
// El atributo puede venir como id, Id o ID según quién generó el documento.
const ComprobanteElementID = "comprobante"
