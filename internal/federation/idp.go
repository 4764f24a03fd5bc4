package federation

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/crewjam/saml"
	"github.com/crewjam/saml/samlsp"
)

// FetchIDPMetadata retrieves and parses the IdP metadata document from a
// metadata location. http(s) locations are fetched over the network; any
// other location is treated as a local file path. Called once at
// registration time.
func FetchIDPMetadata(ctx context.Context, location string) (*saml.EntityDescriptor, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		metadataURL, err := url.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("invalid IdP metadata location: %w", err)
		}
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		metadata, err := samlsp.FetchMetadata(ctx, http.DefaultClient, *metadataURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch IdP metadata from %s: %w", location, err)
		}
		return metadata, nil
	}

	data, err := os.ReadFile(location)
	if err != nil {
		return nil, fmt.Errorf("failed to read IdP metadata file %s: %w", location, err)
	}
	metadata, err := samlsp.ParseMetadata(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse IdP metadata from %s: %w", location, err)
	}
	return metadata, nil
}
