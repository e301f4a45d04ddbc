package entity

import (
	"strings"
	"time"
)

// Client comprador (receptor del comprobante).
type Client struct {
	ID          string
	Dni         string // RUC (13), cédula (10), pasaporte o el comodín de consumidor final
	RazonSocial string
	Address     string
	Phone       string
	Email       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsConsumidorFinal indica si el cliente es el comodín de consumidor final,
// que no admite notas de crédito.
func (c *Client) IsConsumidorFinal() bool {
	return c.Dni == "9999999999999" ||
		strings.Contains(strings.ToUpper(c.RazonSocial), "CONSUMIDOR FINAL")
}
