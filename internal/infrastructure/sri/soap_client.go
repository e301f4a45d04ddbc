package sri

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jcisneros/facturacion-sri/pkg/config"
	pkgsri "github.com/jcisneros/facturacion-sri/pkg/sri"
)

// ── Endpoints oficiales (esquema offline) ─────────────────────────────────────

const (
	receptionURLTest     = "https://celcer.sri.gob.ec/comprobantes-electronicos-ws/RecepcionComprobantesOffline"
	receptionURLProd     = "https://cel.sri.gob.ec/comprobantes-electronicos-ws/RecepcionComprobantesOffline"
	authorizationURLTest = "https://celcer.sri.gob.ec/comprobantes-electronicos-ws/AutorizacionComprobantesOffline"
	authorizationURLProd = "https://cel.sri.gob.ec/comprobantes-electronicos-ws/AutorizacionComprobantesOffline"

	nsRecepcion    = "http://ec.gob.sri.ws.recepcion"
	nsAutorizacion = "http://ec.gob.sri.ws.autorizacion"
)

// SOAPClient implementa Client contra los web services SOAP del SRI.
// Usa net/http de la stdlib; los envelopes son plantillas fijas.
type SOAPClient struct {
	httpClient       *http.Client
	receptionURL     string
	authorizationURL string
}

// NewSOAPClient construye el cliente según el ambiente configurado. Los
// overrides de URL permiten apuntar a un servidor de pruebas local. El SRI
// puede tardar más de un minuto en responder, de ahí el timeout por defecto
// de 2 minutos.
func NewSOAPClient(cfg config.SRIConfig) *SOAPClient {
	recepcion := receptionURLTest
	autorizacion := authorizationURLTest
	if cfg.Environment == pkgsri.AmbienteProduccion {
		recepcion = receptionURLProd
		autorizacion = authorizationURLProd
	}
	if cfg.ReceptionURL != "" {
		recepcion = cfg.ReceptionURL
	}
	if cfg.AuthorizationURL != "" {
		autorizacion = cfg.AuthorizationURL
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &SOAPClient{
		httpClient:       &http.Client{Timeout: timeout},
		receptionURL:     recepcion,
		authorizationURL: autorizacion,
	}
}

// ── Estructuras de respuesta SOAP ─────────────────────────────────────────────
//
// Se parsea por nombre local: los prefijos de namespace del envelope cambian
// entre ambientes y versiones del servicio.

type receptionEnvelope struct {
	Respuesta receptionRespuesta `xml:"Body>validarComprobanteResponse>RespuestaRecepcionComprobante"`
}

type receptionRespuesta struct {
	Estado       string `xml:"estado"`
	Comprobantes []struct {
		ClaveAcceso string       `xml:"claveAcceso"`
		Mensajes    []soapMensaje `xml:"mensajes>mensaje"`
	} `xml:"comprobantes>comprobante"`
}

type authorizationEnvelope struct {
	Respuesta authorizationRespuesta `xml:"Body>autorizacionComprobanteResponse>RespuestaAutorizacionComprobante"`
}

type authorizationRespuesta struct {
	ClaveAccesoConsultada string             `xml:"claveAccesoConsultada"`
	NumeroComprobantes    string             `xml:"numeroComprobantes"`
	Autorizaciones        []soapAutorizacion `xml:"autorizaciones>autorizacion"`
}

type soapAutorizacion struct {
	Estado             string        `xml:"estado"`
	NumeroAutorizacion string        `xml:"numeroAutorizacion"`
	FechaAutorizacion  string        `xml:"fechaAutorizacion"`
	Ambiente           string        `xml:"ambiente"`
	Mensajes           []soapMensaje `xml:"mensajes>mensaje"`
}

type soapMensaje struct {
	Identificador        string `xml:"identificador"`
	Mensaje              string `xml:"mensaje"`
	InformacionAdicional string `xml:"informacionAdicional"`
	Tipo                 string `xml:"tipo"`
}

type soapFault struct {
	Fault struct {
		FaultCode   string `xml:"faultcode"`
		FaultString string `xml:"faultstring"`
	} `xml:"Body>Fault"`
}

// ── ValidateDocument ──────────────────────────────────────────────────────────

// ValidateDocument envía el comprobante firmado a recepción (validarComprobante).
func (c *SOAPClient) ValidateDocument(ctx context.Context, signedXML []byte) (*ReceptionResult, error) {
	if len(signedXML) == 0 {
		return nil, fmt.Errorf("sri: comprobante vacío")
	}

	b64 := base64.StdEncoding.EncodeToString(signedXML)
	var sb strings.Builder
	sb.WriteString(`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ec="` + nsRecepcion + `">`)
	sb.WriteString(`<soapenv:Header/><soapenv:Body>`)
	sb.WriteString(`<ec:validarComprobante><xml>` + b64 + `</xml></ec:validarComprobante>`)
	sb.WriteString(`</soapenv:Body></soapenv:Envelope>`)

	rawBody, err := c.call(ctx, c.receptionURL, sb.String())
	if err != nil {
		return nil, err
	}
	return parseReceptionResponse(rawBody)
}

// parseReceptionResponse desempaqueta la respuesta de recepción. Respuestas
// no parseables o faults se devuelven como DEVUELTA con el detalle en los
// mensajes, no como error Go: el llamador persiste el estado igual.
func parseReceptionResponse(rawBody []byte) (*ReceptionResult, error) {
	var env receptionEnvelope
	if err := xml.Unmarshal(rawBody, &env); err != nil || env.Respuesta.Estado == "" {
		if msg := parseFault(rawBody); msg != "" {
			return &ReceptionResult{
				Estado:   "DEVUELTA",
				Mensajes: []Mensaje{{Identificador: "FAULT", Mensaje: msg, Tipo: "ERROR"}},
			}, nil
		}
		return &ReceptionResult{
			Estado:   "DEVUELTA",
			Mensajes: []Mensaje{{Identificador: "PARSE", Mensaje: "respuesta SOAP inesperada: " + string(rawBody), Tipo: "ERROR"}},
		}, nil
	}

	result := &ReceptionResult{Estado: env.Respuesta.Estado}
	for _, comp := range env.Respuesta.Comprobantes {
		for _, m := range comp.Mensajes {
			result.Mensajes = append(result.Mensajes, Mensaje(m))
		}
	}
	return result, nil
}

// ── AuthorizeDocument ─────────────────────────────────────────────────────────

// AuthorizeDocument consulta autorización por clave de acceso (autorizacionComprobante).
func (c *SOAPClient) AuthorizeDocument(ctx context.Context, accessKey string) (*AuthorizationResult, error) {
	if accessKey == "" {
		return nil, fmt.Errorf("sri: clave de acceso vacía")
	}

	var sb strings.Builder
	sb.WriteString(`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ec="` + nsAutorizacion + `">`)
	sb.WriteString(`<soapenv:Header/><soapenv:Body>`)
	sb.WriteString(`<ec:autorizacionComprobante><claveAccesoComprobante>` + accessKey + `</claveAccesoComprobante></ec:autorizacionComprobante>`)
	sb.WriteString(`</soapenv:Body></soapenv:Envelope>`)

	rawBody, err := c.call(ctx, c.authorizationURL, sb.String())
	if err != nil {
		return nil, err
	}
	return parseAuthorizationResponse(rawBody)
}

func parseAuthorizationResponse(rawBody []byte) (*AuthorizationResult, error) {
	var env authorizationEnvelope
	if err := xml.Unmarshal(rawBody, &env); err != nil {
		if msg := parseFault(rawBody); msg != "" {
			return nil, fmt.Errorf("sri: SOAP Fault: %s", msg)
		}
		return nil, fmt.Errorf("sri: respuesta de autorización no parseable: %w", err)
	}

	result := &AuthorizationResult{ClaveAcceso: env.Respuesta.ClaveAccesoConsultada}
	for _, a := range env.Respuesta.Autorizaciones {
		auth := Autorizacion{
			Estado:             a.Estado,
			NumeroAutorizacion: a.NumeroAutorizacion,
			Ambiente:           a.Ambiente,
			FechaAutorizacion:  parseSRIDate(a.FechaAutorizacion),
		}
		for _, m := range a.Mensajes {
			auth.Mensajes = append(auth.Mensajes, Mensaje(m))
		}
		result.Autorizaciones = append(result.Autorizaciones, auth)
	}
	return result, nil
}

// parseSRIDate tolera los formatos de fecha que devuelve el SRI (con y sin
// zona horaria o milisegundos). Fecha no parseable = nil, no se aborta.
func parseSRIDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05.000-07:00",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05.000",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// ── transporte común ──────────────────────────────────────────────────────────

// call ejecuta el POST SOAP 1.1. SOAPAction va vacío, como exige el servicio.
func (c *SOAPClient) call(ctx context.Context, url, envelope string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte(envelope)))
	if err != nil {
		return nil, fmt.Errorf("sri: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("sri: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("sri: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20)) // max 4 MB
	if err != nil {
		return nil, fmt.Errorf("sri: leer respuesta: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sri: HTTP %d: %s", resp.StatusCode, truncate(rawBody, 512))
	}
	return rawBody, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

func parseFault(rawBody []byte) string {
	var f soapFault
	if err := xml.Unmarshal(rawBody, &f); err != nil {
		return ""
	}
	if f.Fault.FaultString == "" {
		return ""
	}
	return fmt.Sprintf("[%s] %s", f.Fault.FaultCode, f.Fault.FaultString)
}

var _ Client = (*SOAPClient)(nil)
