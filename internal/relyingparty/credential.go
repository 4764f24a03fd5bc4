package relyingparty

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
)

// SigningCredential is the SP's signing identity for a federation
// relationship. Once loaded it is immutable and safe to share by reference
// across concurrent requests.
type SigningCredential struct {
	PrivateKey  *rsa.PrivateKey
	Certificate *x509.Certificate
}

// LoadSigningCredential parses PEM-encoded certificate and key material into
// a signing credential. The key may be PKCS#8 or PKCS#1; the certificate
// X.509 PEM or raw base64 DER.
func LoadSigningCredential(certPEM, keyPEM []byte) (*SigningCredential, error) {
	cert, err := parseCertificate(certPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing certificate: %w", err)
	}
	key, err := parsePrivateKey(keyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}
	return &SigningCredential{PrivateKey: key, Certificate: cert}, nil
}

// LoadSigningCredentialFiles reads certificate and key files and parses them
func LoadSigningCredentialFiles(certFile, keyFile string) (*SigningCredential, error) {
	certPEM, err := os.ReadFile(certFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing certificate %s: %w", certFile, err)
	}
	keyPEM, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing key %s: %w", keyFile, err)
	}
	return LoadSigningCredential(certPEM, keyPEM)
}

func parseCertificate(certPEM []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil {
		// Try parsing as raw base64 DER
		certBytes, err := base64.StdEncoding.DecodeString(string(certPEM))
		if err != nil {
			return nil, fmt.Errorf("not PEM and not base64 DER")
		}
		return x509.ParseCertificate(certBytes)
	}
	return x509.ParseCertificate(block.Bytes)
}

func parsePrivateKey(keyPEM []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, fmt.Errorf("failed to decode private key PEM")
	}

	// Try PKCS#8 first
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err == nil {
		if rsaKey, ok := key.(*rsa.PrivateKey); ok {
			return rsaKey, nil
		}
		return nil, fmt.Errorf("private key is not RSA")
	}

	// Try PKCS#1
	return x509.ParsePKCS1PrivateKey(block.Bytes)
}
