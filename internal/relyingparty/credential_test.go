package relyingparty

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// generateTestMaterial builds an RSA key and a matching self-signed
// certificate for credential parsing tests
func generateTestMaterial(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate RSA key: %v", err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName:   "authgate-test",
			Organization: []string{"Test"},
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}
	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("Failed to create certificate: %v", err)
	}
	return key, certDER
}

func pemEncode(blockType string, der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
}

func TestLoadSigningCredentialPKCS8(t *testing.T) {
	key, certDER := generateTestMaterial(t)

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("Failed to marshal PKCS#8 key: %v", err)
	}
	certPEM := pemEncode("CERTIFICATE", certDER)
	keyPEM := pemEncode("PRIVATE KEY", keyDER)

	cred, err := LoadSigningCredential(certPEM, keyPEM)
	if err != nil {
		t.Fatalf("LoadSigningCredential failed: %v", err)
	}
	if cred.PrivateKey == nil || cred.Certificate == nil {
		t.Fatal("Credential is missing key or certificate")
	}
	if cred.Certificate.Subject.CommonName != "authgate-test" {
		t.Errorf("Unexpected certificate subject: %s", cred.Certificate.Subject.CommonName)
	}
	if !cred.PrivateKey.PublicKey.Equal(cred.Certificate.PublicKey) {
		t.Error("Private key does not match certificate public key")
	}
}

func TestLoadSigningCredentialPKCS1(t *testing.T) {
	key, certDER := generateTestMaterial(t)

	certPEM := pemEncode("CERTIFICATE", certDER)
	keyPEM := pemEncode("RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(key))

	cred, err := LoadSigningCredential(certPEM, keyPEM)
	if err != nil {
		t.Fatalf("LoadSigningCredential failed for PKCS#1 key: %v", err)
	}
	if !cred.PrivateKey.Equal(key) {
		t.Error("Parsed PKCS#1 key does not match the original")
	}
}

// TestLoadSigningCredentialRawDERCertificate checks the fallback for
// certificates supplied as base64 DER without PEM armor
func TestLoadSigningCredentialRawDERCertificate(t *testing.T) {
	key, certDER := generateTestMaterial(t)

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("Failed to marshal PKCS#8 key: %v", err)
	}
	rawCert := []byte(base64.StdEncoding.EncodeToString(certDER))
	keyPEM := pemEncode("PRIVATE KEY", keyDER)

	cred, err := LoadSigningCredential(rawCert, keyPEM)
	if err != nil {
		t.Fatalf("LoadSigningCredential failed for raw DER certificate: %v", err)
	}
	if cred.Certificate.Subject.CommonName != "authgate-test" {
		t.Errorf("Unexpected certificate subject: %s", cred.Certificate.Subject.CommonName)
	}
}

func TestLoadSigningCredentialInvalidInput(t *testing.T) {
	key, certDER := generateTestMaterial(t)
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("Failed to marshal PKCS#8 key: %v", err)
	}
	certPEM := pemEncode("CERTIFICATE", certDER)
	keyPEM := pemEncode("PRIVATE KEY", keyDER)

	tests := []struct {
		name string
		cert []byte
		key  []byte
	}{
		{"garbage certificate", []byte("not a certificate"), keyPEM},
		{"garbage key", certPEM, []byte("not a key")},
		{"empty certificate", nil, keyPEM},
		{"empty key", certPEM, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadSigningCredential(tt.cert, tt.key); err == nil {
				t.Error("Expected an error, got nil")
			}
		})
	}
}

func TestLoadSigningCredentialFiles(t *testing.T) {
	key, certDER := generateTestMaterial(t)
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("Failed to marshal PKCS#8 key: %v", err)
	}

	dir := t.TempDir()
	certFile := filepath.Join(dir, "sp.crt")
	keyFile := filepath.Join(dir, "sp.key")
	if err := os.WriteFile(certFile, pemEncode("CERTIFICATE", certDER), 0600); err != nil {
		t.Fatalf("Failed to write certificate file: %v", err)
	}
	if err := os.WriteFile(keyFile, pemEncode("PRIVATE KEY", keyDER), 0600); err != nil {
		t.Fatalf("Failed to write key file: %v", err)
	}

	cred, err := LoadSigningCredentialFiles(certFile, keyFile)
	if err != nil {
		t.Fatalf("LoadSigningCredentialFiles failed: %v", err)
	}
	if cred.Certificate == nil || cred.PrivateKey == nil {
		t.Fatal("Credential is incomplete")
	}

	if _, err := LoadSigningCredentialFiles(filepath.Join(dir, "missing.crt"), keyFile); err == nil {
		t.Error("Expected an error for a missing certificate file")
	}
	if _, err := LoadSigningCredentialFiles(certFile, filepath.Join(dir, "missing.key")); err == nil {
		t.Error("Expected an error for a missing key file")
	}
}
