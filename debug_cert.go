// Herramienta de diagnóstico de certificados .p12 para firma electrónica SRI.
// Verifica que el archivo exista, que la contraseña sea correcta y que el
// certificado esté vigente, sin tocar la base de datos.
//
// Uso: go run debug_cert.go <ruta/certificado.p12> [contraseña]

//go:build ignore

package main

import (
	"crypto/rsa"
	"fmt"
	"os"
	"time"

	"github.com/jcisneros/facturacion-sri/internal/infrastructure/sri/signer"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Uso: go run debug_cert.go <ruta/certificado.p12> [contraseña]")
		os.Exit(1)
	}
	certPath := os.Args[1]
	certPass := ""
	if len(os.Args) > 2 {
		certPass = os.Args[2]
	}

	fmt.Println("🔍 DIAGNÓSTICO DE CERTIFICADO SRI")
	fmt.Println("----------------------------------")
	fmt.Printf("📂 Intentando leer: %s\n", certPath)

	cert, err := signer.LoadFromP12(certPath, certPass)
	if err != nil {
		fmt.Println("\n❌ ERROR:")
		fmt.Printf("   No se pudo cargar el certificado (¿ruta o contraseña incorrecta?).\n")
		fmt.Printf("   Detalle técnico: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✅ Archivo leído y contraseña correcta.")

	leaf := cert.Leaf
	fmt.Printf("\n📜 Titular:  %s\n", leaf.Subject.String())
	fmt.Printf("🏛  Emisor:   %s\n", leaf.Issuer.String())
	fmt.Printf("🔢 Serial:   %s\n", leaf.SerialNumber.String())
	fmt.Printf("📅 Vigencia: %s → %s\n",
		leaf.NotBefore.Format("2006-01-02"), leaf.NotAfter.Format("2006-01-02"))

	now := time.Now()
	switch {
	case now.Before(leaf.NotBefore):
		fmt.Println("\n⚠️  El certificado todavía no entra en vigencia.")
	case now.After(leaf.NotAfter):
		fmt.Println("\n❌ El certificado está VENCIDO. El SRI rechazará los comprobantes.")
		os.Exit(1)
	default:
		fmt.Printf("\n✅ Certificado vigente (%d días restantes).\n",
			int(leaf.NotAfter.Sub(now).Hours()/24))
	}

	if _, ok := cert.PrivateKey.(*rsa.PrivateKey); ok {
		fmt.Println("✅ Llave privada RSA presente: apto para firma XAdES-BES.")
	} else {
		fmt.Println("❌ La llave privada no es RSA: la firma XAdES-BES fallará.")
		os.Exit(1)
	}
}
