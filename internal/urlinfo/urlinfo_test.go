package urlinfo

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		wantCanonical string
		wantScheme    string
		wantHost      string
	}{
		{"bare host", "example.com", "http://example.com", "http", "example.com"},
		{"keeps https", "https://example.com/a", "https://example.com/a", "https", "example.com"},
		{"trims whitespace", "  http://example.com  ", "http://example.com", "http", "example.com"},
		{"strips fragment", "http://example.com/page#frag", "http://example.com/page", "http", "example.com"},
		{"uppercase scheme", "HTTPS://example.com", "https://example.com", "https", "example.com"},
		{"path and query survive", "example.com/a/b?x=1", "http://example.com/a/b?x=1", "http", "example.com"},
		{"empty input", "", "http://", "http", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.raw)
			if got.Canonical != tc.wantCanonical {
				t.Errorf("Normalize(%q).Canonical = %q, want %q", tc.raw, got.Canonical, tc.wantCanonical)
			}
			if got.Scheme != tc.wantScheme {
				t.Errorf("Normalize(%q).Scheme = %q, want %q", tc.raw, got.Scheme, tc.wantScheme)
			}
			if got.Host != tc.wantHost {
				t.Errorf("Normalize(%q).Host = %q, want %q", tc.raw, got.Host, tc.wantHost)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"example.com",
		"http://example.com",
		"HTTPS://Example.com/Path?q=1#frag",
		"  login-secure.bank.example  ",
		"203.0.113.5/login",
		"xn--pple-43d.com",
		"",
		"not a url at all \x00\x01",
		"http://a.b.c.d.e.f.example.co.uk//double",
	}
	for _, raw := range inputs {
		once := Normalize(raw)
		twice := Normalize(once.Canonical)
		if twice.Canonical != once.Canonical {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", raw, once.Canonical, twice.Canonical)
		}
	}
}

func TestSplitHost(t *testing.T) {
	tests := []struct {
		host          string
		wantDomain    string
		wantSubdomain string
		wantSuffix    string
	}{
		{"example.com", "example.com", "", "com"},
		{"www.example.com", "example.com", "www", "com"},
		{"a.b.example.co.uk", "example.co.uk", "a.b", "co.uk"},
		{"Example.COM.", "example.com", "", "com"},
		{"localhost", "localhost", "", ""},
		{"203.0.113.5", "203.0.113.5", "", ""},
		{"", "", "", ""},
	}
	for _, tc := range tests {
		got := SplitHost(tc.host)
		if got.Domain != tc.wantDomain || got.Subdomain != tc.wantSubdomain || got.Suffix != tc.wantSuffix {
			t.Errorf("SplitHost(%q) = %+v, want domain=%q subdomain=%q suffix=%q",
				tc.host, got, tc.wantDomain, tc.wantSubdomain, tc.wantSuffix)
		}
	}
}

func TestSplitURL(t *testing.T) {
	tests := []struct {
		raw        string
		wantDomain string
	}{
		{"http://evil.example.net/collect", "example.net"},
		{"https://cdn.example.org/lib.js", "example.org"},
		{"//static.example.com/x.png", "example.com"},
		{"/relative/path", ""},
		{"submit.php", ""},
		{"mailto:x@example.com", ""},
		{"", ""},
	}
	for _, tc := range tests {
		if got := SplitURL(tc.raw).Domain; got != tc.wantDomain {
			t.Errorf("SplitURL(%q).Domain = %q, want %q", tc.raw, got, tc.wantDomain)
		}
	}
}

func TestPartsTLD(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"example.co.uk", "uk"},
		{"example.com", "com"},
		{"pay.totally-legit-bank.xyz", "xyz"},
		{"localhost", "localhost"},
	}
	for _, tc := range tests {
		if got := SplitHost(tc.host).TLD(); got != tc.want {
			t.Errorf("SplitHost(%q).TLD() = %q, want %q", tc.host, got, tc.want)
		}
	}
}
