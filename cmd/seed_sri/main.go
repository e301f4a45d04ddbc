// seed_sri genera scripts SQL para poblar los catálogos paramétricos del SRI
// (tipos de comprobante y tarifas de IVA/ICE) a partir del XML de catálogos
// publicado en la ficha técnica.
//
// Uso: go run ./cmd/seed_sri [ruta/Catalogos.xml]
// Por defecto busca Catalogos.xml en el directorio actual.
// Escribe: internal/infrastructure/postgres/migrations/010_seed_catalogos.sql
package main

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

type catalogos struct {
	Tablas []tabla `xml:"tabla"`
}

type tabla struct {
	Nombre  string  `xml:"nombre,attr"`
	Valores []valor `xml:"valor"`
}

type valor struct {
	Codigo     string `xml:"codigo,attr"`
	Nombre     string `xml:"nombre,attr"`
	Porcentaje string `xml:"porcentaje,attr"`
}

func main() {
	xmlPath := "Catalogos.xml"
	if len(os.Args) > 1 {
		xmlPath = os.Args[1]
	}
	f, err := os.Open(xmlPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir XML: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	var cat catalogos
	dec := xml.NewDecoder(f)
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		if strings.EqualFold(charset, "ISO-8859-1") || strings.EqualFold(charset, "ISO8859-1") {
			return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
		}
		return input, nil
	}
	if err := dec.Decode(&cat); err != nil {
		fmt.Fprintf(os.Stderr, "Decodificar XML: %v\n", err)
		os.Exit(1)
	}

	var docTypes, tariffs []valor
	for _, t := range cat.Tablas {
		switch strings.ToLower(strings.TrimSpace(t.Nombre)) {
		case "tipos_comprobante":
			docTypes = append(docTypes, t.Valores...)
		case "tarifas":
			tariffs = append(tariffs, t.Valores...)
		}
	}
	if len(docTypes) == 0 || len(tariffs) == 0 {
		fmt.Fprintln(os.Stderr, "El XML no contiene las tablas tipos_comprobante y tarifas")
		os.Exit(1)
	}

	// Orden estable por código para que el script generado sea reproducible
	sort.Slice(docTypes, func(i, j int) bool { return docTypes[i].Codigo < docTypes[j].Codigo })
	sort.Slice(tariffs, func(i, j int) bool { return tariffs[i].Codigo < tariffs[j].Codigo })

	moduleRoot := findModuleRoot()
	outDir := filepath.Join(moduleRoot, "internal", "infrastructure", "postgres", "migrations")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Crear directorio: %v\n", err)
		os.Exit(1)
	}
	outPath := filepath.Join(outDir, "010_seed_catalogos.sql")
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	out.WriteString("-- Catálogos SRI: tipos de comprobante y tarifas de impuestos\n")
	out.WriteString("-- Generado desde Catalogos.xml (ficha técnica SRI)\n\n")

	out.WriteString("-- 1. Tipos de comprobante\n")
	out.WriteString("INSERT INTO document_types (id, code, name) VALUES\n")
	for i, dt := range docTypes {
		sep := ","
		if i == len(docTypes)-1 {
			sep = ""
		}
		fmt.Fprintf(out, "  ('%s', '%s', '%s')%s\n",
			uuid.NewString(), escapeSQL(dt.Codigo), escapeSQL(dt.Nombre), sep)
	}
	out.WriteString("ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name;\n\n")

	out.WriteString("-- 2. Tarifas de IVA e ICE\n")
	out.WriteString("INSERT INTO tariffs (id, name, percentage) VALUES\n")
	for i, tf := range tariffs {
		pct := strings.TrimSpace(tf.Porcentaje)
		if pct == "" {
			pct = "0"
		}
		sep := ","
		if i == len(tariffs)-1 {
			sep = ""
		}
		fmt.Fprintf(out, "  ('%s', '%s', %s)%s\n",
			uuid.NewString(), escapeSQL(tf.Nombre), pct, sep)
	}
	out.WriteString("ON CONFLICT (name) DO UPDATE SET percentage = EXCLUDED.percentage;\n")

	fmt.Printf("Generado %s: %d tipos de comprobante, %d tarifas\n", outPath, len(docTypes), len(tariffs))
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
