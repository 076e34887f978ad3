// Package passkit builds .pkpass archives for the wallet card.
package passkit

import (
	"archive/zip"
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/punchcard/backend/internal/model"
)

// Signer produces the PKCS#7 detached signature over manifest.json.
// Production deployments plug in a certificate-backed implementation;
// NoopSigner skips the signature file for development and tests.
type Signer interface {
	Sign(manifest []byte) ([]byte, error)
}

type NoopSigner struct{}

func (NoopSigner) Sign([]byte) ([]byte, error) { return nil, nil }

type Builder struct {
	PassTypeIdentifier string
	TeamIdentifier     string
	OrganizationName   string
	WebServiceURL      string
	Signer             Signer
}

type passField struct {
	Key   string `json:"key"`
	Label string `json:"label,omitempty"`
	Value string `json:"value"`
}

type passJSON struct {
	FormatVersion       int       `json:"formatVersion"`
	PassTypeIdentifier  string    `json:"passTypeIdentifier"`
	SerialNumber        string    `json:"serialNumber"`
	TeamIdentifier      string    `json:"teamIdentifier"`
	OrganizationName    string    `json:"organizationName"`
	Description         string    `json:"description"`
	AuthenticationToken string    `json:"authenticationToken"`
	WebServiceURL       string    `json:"webServiceURL"`
	Voided              bool      `json:"voided,omitempty"`
	Barcodes            []barcode `json:"barcodes"`
	StoreCard           fields    `json:"storeCard"`
}

type barcode struct {
	Format          string `json:"format"`
	Message         string `json:"message"`
	MessageEncoding string `json:"messageEncoding"`
}

type fields struct {
	PrimaryFields   []passField `json:"primaryFields"`
	SecondaryFields []passField `json:"secondaryFields"`
	AuxiliaryFields []passField `json:"auxiliaryFields,omitempty"`
}

// Build renders the member's current state into a .pkpass archive. Card
// fields derive only from member state, so any points or tier change
// yields fresh bytes.
func (b *Builder) Build(member *model.Member, pass *model.WalletPass) ([]byte, error) {
	doc := passJSON{
		FormatVersion:       1,
		PassTypeIdentifier:  b.PassTypeIdentifier,
		SerialNumber:        pass.SerialNumber,
		TeamIdentifier:      b.TeamIdentifier,
		OrganizationName:    b.OrganizationName,
		Description:         b.OrganizationName + " membership card",
		AuthenticationToken: pass.AuthenticationToken,
		WebServiceURL:       b.WebServiceURL,
		Voided:              pass.Voided,
		Barcodes: []barcode{{
			Format:          "PKBarcodeFormatQR",
			Message:         pass.SerialNumber,
			MessageEncoding: "iso-8859-1",
		}},
		StoreCard: fields{
			PrimaryFields: []passField{
				{Key: "points", Label: "POINTS", Value: fmt.Sprintf("%d", member.Points)},
			},
			SecondaryFields: []passField{
				{Key: "tier", Label: "TIER", Value: member.Tier},
				{Key: "name", Label: "MEMBER", Value: member.FullName},
			},
			AuxiliaryFields: []passField{
				{Key: "visits", Label: "VISITS", Value: fmt.Sprintf("%d", member.TotalVisits)},
			},
		},
	}

	passData, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pass.json: %w", err)
	}

	files := map[string][]byte{
		"pass.json": passData,
	}

	manifest := make(map[string]string, len(files))
	for name, data := range files {
		sum := sha1.Sum(data)
		manifest[name] = hex.EncodeToString(sum[:])
	}
	manifestData, err := json.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest.json: %w", err)
	}
	files["manifest.json"] = manifestData

	signer := b.Signer
	if signer == nil {
		signer = NoopSigner{}
	}
	signature, err := signer.Sign(manifestData)
	if err != nil {
		return nil, fmt.Errorf("failed to sign manifest: %w", err)
	}
	if len(signature) > 0 {
		files["signature"] = signature
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range files {
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s to archive: %w", name, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	return buf.Bytes(), nil
}
