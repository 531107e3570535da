package pdfinvoice

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	encryptMarker = []byte("/Encrypt")
	configOnce    sync.Once
)

// decrypt removes the security handler from an encrypted document so the
// layout reader can parse its content streams. Unencrypted input is returned
// unchanged. The password is tried as both user and owner password.
func decrypt(data []byte, password string) ([]byte, error) {
	if !bytes.Contains(data, encryptMarker) {
		return data, nil
	}

	// pdfcpu otherwise creates a configuration directory under the user's
	// home on first use.
	configOnce.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.UserPW = password
	conf.OwnerPW = password

	var out bytes.Buffer
	if err := api.Decrypt(bytes.NewReader(data), &out, conf); err != nil {
		return nil, fmt.Errorf("failed to decrypt PDF: %w", err)
	}

	pages, err := api.PageCount(bytes.NewReader(out.Bytes()), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("failed to read decrypted PDF: %w", err)
	}
	if pages == 0 {
		return nil, fmt.Errorf("decrypted PDF has no pages")
	}
	return out.Bytes(), nil
}
