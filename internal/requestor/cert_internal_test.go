package requestor

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCertInfoFrom_NoCertificate(t *testing.T) {
	_, err := certInfoFrom(nil).Get()
	assert.ErrorIs(t, err, ErrNoPeerCertificate)
}

func TestCertInfoFrom_MissingValidity(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		cert *x509.Certificate
	}{
		{"no not before", &x509.Certificate{NotAfter: now.Add(24 * time.Hour)}},
		{"no not after", &x509.Certificate{NotBefore: now.Add(-24 * time.Hour)}},
		{"no bounds", &x509.Certificate{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := certInfoFrom(tt.cert).Get()
			assert.ErrorIs(t, err, ErrMissingValidity)
		})
	}
}

func TestCertInfoFrom_CommonNames(t *testing.T) {
	notBefore := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.FixedZone("CET", 3600))
	notAfter := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.FixedZone("CET", 3600))

	info, err := certInfoFrom(&x509.Certificate{
		Subject:   pkix.Name{Organization: []string{"No CN Ltd"}},
		Issuer:    pkix.Name{CommonName: "Test Root"},
		NotBefore: notBefore,
		NotAfter:  notAfter,
	}).Get()
	require.NoError(t, err)

	assert.Nil(t, info.SubjectCN)
	require.NotNil(t, info.IssuerCN)
	assert.Equal(t, "Test Root", *info.IssuerCN)
	assert.Equal(t, time.UTC, info.NotBefore.Location())
	assert.True(t, notAfter.Equal(info.NotAfter))
}
