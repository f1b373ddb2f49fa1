package normalize

import "strings"

// Provider identifies the cloud a billing export came from
type Provider string

const (
	ProviderAWS     Provider = "AWS"
	ProviderOCI     Provider = "OCI"
	ProviderAzure   Provider = "AZURE"
	ProviderGeneric Provider = "GENERIC"
)

// CloudOrder is the display order of providers in multicloud views
var CloudOrder = []Provider{ProviderAWS, ProviderOCI, ProviderAzure}

// ParseProvider maps a free-form hint to a Provider. Unknown or empty hints
// return "" so that detection runs.
func ParseProvider(s string) Provider {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AWS", "AMAZON":
		return ProviderAWS
	case "OCI", "ORACLE":
		return ProviderOCI
	case "AZURE", "MICROSOFT":
		return ProviderAzure
	case "GENERIC":
		return ProviderGeneric
	}
	return ""
}

// FirstClass reports whether p has a fixed export schema
func (p Provider) FirstClass() bool {
	return p == ProviderAWS || p == ProviderOCI
}

func (p Provider) String() string {
	return string(p)
}
