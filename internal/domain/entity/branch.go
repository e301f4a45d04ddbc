package entity

import "time"

// Branch establecimiento (sucursal) de la empresa. Code es el código de 3
// dígitos que va en la serie del comprobante (ej: "001").
type Branch struct {
	ID           string
	EnterpriseID string
	Code         string
	Name         string
	Address      string
	CreatedAt    time.Time
}

// EmissionPoint punto de emisión dentro de un establecimiento. Code es el
// código de 3 dígitos (ej: "001").
type EmissionPoint struct {
	ID          string
	BranchID    string
	Code        string
	Description string
	CreatedAt   time.Time
}
