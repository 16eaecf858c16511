package admission

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

type stubBindings struct {
	bound map[string]string // fqdn -> application id
	err   error
	calls []string
}

func (s *stubBindings) IsDomainBound(ctx context.Context, applicationID, fqdn string) (bool, error) {
	s.calls = append(s.calls, fqdn)
	if s.err != nil {
		return false, s.err
	}
	owner, ok := s.bound[fqdn]
	return ok && owner != applicationID, nil
}

type stubResolver struct {
	records map[string][]net.IP
	lookups []string
}

func (r *stubResolver) LookupA(ctx context.Context, host string) []net.IP {
	r.lookups = append(r.lookups, host)
	return r.records[host]
}

func ips(addrs ...string) []net.IP {
	out := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, net.ParseIP(a))
	}
	return out
}

func newTestController(bound map[string]string, records map[string][]net.IP, devMode bool) (*Controller, *stubBindings, *stubResolver) {
	b := &stubBindings{bound: bound}
	r := &stubResolver{records: records}
	return NewController(b, r, devMode, nil), b, r
}

// =============================================================================
// Tests
// =============================================================================

func TestValidate_DomainConflict(t *testing.T) {
	bound := map[string]string{"www.example.com": "app_other"}

	for _, force := range []bool{false, true} {
		c, _, r := newTestController(bound, nil, false)
		err := c.Validate(context.Background(), Request{
			ApplicationID: "app_1",
			FQDN:          "WWW.Example.com",
			ForceSave:     force,
			InboundHost:   "control.example.net",
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDomainConflict)

		var admErr *Error
		require.True(t, errors.As(err, &admErr))
		assert.Equal(t, KindDomainConflict, admErr.Kind)
		assert.Equal(t, "example.com", admErr.Domain)
		assert.Contains(t, admErr.Message, "example.com")
		assert.NotContains(t, admErr.Message, "www.")
		assert.Empty(t, r.lookups, "no DNS lookups after a conflict")
	}
}

func TestValidate_SameApplicationIsNotConflict(t *testing.T) {
	bound := map[string]string{"example.com": "app_1"}
	c, _, _ := newTestController(bound, nil, false)

	err := c.Validate(context.Background(), Request{ApplicationID: "app_1", FQDN: "example.com", InboundHost: "control.example.net"})
	assert.NoError(t, err)
}

func TestValidate_ForceSaveSkipsDNS(t *testing.T) {
	records := map[string][]net.IP{
		"control.example.net": ips("1.2.3.4"),
		"example.com":         ips("9.9.9.9"),
	}
	c, _, r := newTestController(nil, records, false)

	err := c.Validate(context.Background(), Request{ApplicationID: "app_1", FQDN: "example.com", ForceSave: true, InboundHost: "control.example.net"})
	assert.NoError(t, err)
	assert.Empty(t, r.lookups)
}

func TestValidate_DevModeSkipsDNS(t *testing.T) {
	records := map[string][]net.IP{
		"localhost":   ips("127.0.0.1"),
		"example.com": ips("9.9.9.9"),
	}
	c, _, r := newTestController(nil, records, true)

	err := c.Validate(context.Background(), Request{ApplicationID: "app_1", FQDN: "example.com", InboundHost: "localhost"})
	assert.NoError(t, err)
	assert.Empty(t, r.lookups)
}

func TestValidate_InboundUnresolvedSkipsCheck(t *testing.T) {
	c, _, r := newTestController(nil, map[string][]net.IP{}, false)

	err := c.Validate(context.Background(), Request{ApplicationID: "app_1", FQDN: "https://example.com/", InboundHost: "10.0.0.1"})
	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{"10.0.0.1", "example.com"}, r.lookups)
}

func TestValidate_DNS(t *testing.T) {
	tests := []struct {
		name    string
		inbound []net.IP
		domain  []net.IP
		wantErr bool
	}{
		{"first address matches", ips("1.1.1.10", "2.2.2.20"), ips("1.1.1.10"), false},
		{"first address among many", ips("1.1.1.10"), ips("3.3.3.3", "1.1.1.10"), false},
		{"only second address matches", ips("1.1.1.10", "2.2.2.20"), ips("2.2.2.20"), true},
		{"domain unresolved", ips("1.1.1.10"), nil, true},
		{"different address", ips("1.1.1.10"), ips("4.4.4.4"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := map[string][]net.IP{
				"control.example.net": tt.inbound,
				"app.example.com":     tt.domain,
			}
			c, _, _ := newTestController(nil, records, false)

			err := c.Validate(context.Background(), Request{ApplicationID: "app_1", FQDN: "app.example.com", InboundHost: "control.example.net"})
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDNSMismatch)
			assert.Contains(t, err.Error(), "app.example.com")
		})
	}
}

func TestValidate_LowercasesBeforeLookup(t *testing.T) {
	c, b, _ := newTestController(nil, nil, true)

	require.NoError(t, c.Validate(context.Background(), Request{ApplicationID: "app_1", FQDN: "HTTPS://App.Example.COM"}))
	assert.Equal(t, []string{"https://app.example.com"}, b.calls)
}

func TestValidate_ForceSaveAdmitsAnyHostForm(t *testing.T) {
	hosts := []string{
		"localhost",
		"intranet",
		"xn--80ak6aa92e.xn--p1ai",
		"my_app.example.com",
		"10.0.0.5",
	}

	for _, host := range hosts {
		t.Run(host, func(t *testing.T) {
			records := map[string][]net.IP{"platform.example.com": ips("203.0.113.10")}
			c, _, r := newTestController(nil, records, false)

			err := c.Validate(context.Background(), Request{
				ApplicationID: "app_1",
				FQDN:          "https://" + host,
				ForceSave:     true,
				InboundHost:   "platform.example.com",
			})
			require.NoError(t, err)
			assert.Empty(t, r.lookups)
		})
	}
}

func TestValidate_ForceSaveStillRejectsConflict(t *testing.T) {
	c, _, _ := newTestController(map[string]string{"https://intranet": "app_2"}, nil, false)

	err := c.Validate(context.Background(), Request{ApplicationID: "app_1", FQDN: "https://intranet", ForceSave: true})
	assert.ErrorIs(t, err, ErrDomainConflict)
}

func TestValidate_BindingsErrorPropagates(t *testing.T) {
	boom := errors.New("database is locked")
	c, b, _ := newTestController(nil, nil, false)
	b.err = boom

	err := c.Validate(context.Background(), Request{ApplicationID: "app_1", FQDN: "example.com"})
	assert.ErrorIs(t, err, boom)

	var admErr *Error
	assert.False(t, errors.As(err, &admErr))
}
