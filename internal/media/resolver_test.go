package media

import "testing"

func TestResolve(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"ipfs://Qm123", "https://ipfs.io/ipfs/Qm123"},
		{"ipfs://ipfs/Qm123/1.png", "https://ipfs.io/ipfs/Qm123/1.png"},
		{"IPFS://Qm123", "https://ipfs.io/ipfs/Qm123"},
		{"ar://abc", "https://arweave.net/abc"},
		{"https://x.com/y", "https://x.com/y"},
		{"https://gateway.pinata.cloud/ipfs/QmAbc/meta.json", "https://ipfs.io/ipfs/QmAbc/meta.json"},
		{"https://ipfs.io/ipfs/QmAbc", "https://ipfs.io/ipfs/QmAbc"},
		{"data:image/svg+xml;base64,PHN2Zz4=", "data:image/svg+xml;base64,PHN2Zz4="},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Resolve(tc.in); got != tc.want {
			t.Fatalf("Resolve(%q)=%q want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolver_CustomGateways(t *testing.T) {
	r := NewResolver("https://cf-ipfs.example", "https://ar.example/")
	if got := r.Resolve("ipfs://Qm1"); got != "https://cf-ipfs.example/Qm1" {
		t.Fatalf("got %q", got)
	}
	if got := r.Resolve("ar://tx"); got != "https://ar.example/tx" {
		t.Fatalf("got %q", got)
	}
}

func TestContentAddressing(t *testing.T) {
	cases := []struct {
		in            string
		ipfs, arweave bool
	}{
		{"ipfs://Qm1", true, false},
		{"https://nftstorage.link/ipfs/bafy", true, false},
		{"ar://tx", false, true},
		{"https://arweave.net/tx", false, true},
		{"https://abc.arweave.net/tx", false, true},
		{"https://example.com/a.png", false, false},
	}
	for _, tc := range cases {
		if IsIPFS(tc.in) != tc.ipfs || IsArweave(tc.in) != tc.arweave {
			t.Fatalf("%q: ipfs=%v arweave=%v", tc.in, IsIPFS(tc.in), IsArweave(tc.in))
		}
		if IsContentAddressed(tc.in) != (tc.ipfs || tc.arweave) {
			t.Fatalf("%q: content addressed mismatch", tc.in)
		}
	}
}
