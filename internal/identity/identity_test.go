package identity

import (
	"bytes"
	"testing"
)

func TestGenerateRandomProducesDistinctIdentities(t *testing.T) {
	a, err := GenerateRandom()
	if err != nil {
		t.Fatalf("GenerateRandom() error: %v", err)
	}
	b, err := GenerateRandom()
	if err != nil {
		t.Fatalf("GenerateRandom() error: %v", err)
	}
	if a.PeerID() == b.PeerID() {
		t.Error("two generated identities should not share a peer ID")
	}
}

func TestGenerateMnemonicIsValid(t *testing.T) {
	mnemonic, err := GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic() error: %v", err)
	}
	if !ValidateMnemonic(mnemonic) {
		t.Errorf("generated mnemonic failed validation: %q", mnemonic)
	}
}

// testMnemonic is the standard BIP-39 all-"abandon" test vector.
const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestFromMnemonicIsDeterministic(t *testing.T) {
	a, err := FromMnemonic(testMnemonic, "TREZOR")
	if err != nil {
		t.Fatalf("FromMnemonic() error: %v", err)
	}
	b, err := FromMnemonic(testMnemonic, "TREZOR")
	if err != nil {
		t.Fatalf("FromMnemonic() error: %v", err)
	}
	if a.PeerID() != b.PeerID() {
		t.Error("same mnemonic and passphrase should derive the same peer ID")
	}
}

func TestFromMnemonicDifferentPassphraseDiffers(t *testing.T) {
	a, err := FromMnemonic(testMnemonic, "TREZOR")
	if err != nil {
		t.Fatalf("FromMnemonic() error: %v", err)
	}
	b, err := FromMnemonic(testMnemonic, "different")
	if err != nil {
		t.Fatalf("FromMnemonic() error: %v", err)
	}
	if a.PeerID() == b.PeerID() {
		t.Error("different passphrases should derive different peer IDs")
	}
}

func TestFromMnemonicRejectsInvalidMnemonic(t *testing.T) {
	if _, err := FromMnemonic("not a real mnemonic at all", ""); err == nil {
		t.Error("expected an error deriving from an invalid mnemonic")
	}
}

func TestRawRoundTrip(t *testing.T) {
	original, err := GenerateRandom()
	if err != nil {
		t.Fatalf("GenerateRandom() error: %v", err)
	}
	raw, err := original.Raw()
	if err != nil {
		t.Fatalf("Raw() error: %v", err)
	}
	restored, err := FromRawKey(raw)
	if err != nil {
		t.Fatalf("FromRawKey() error: %v", err)
	}
	if original.PeerID() != restored.PeerID() {
		t.Error("restored identity should have the same peer ID as the original")
	}
}

func TestFromRawKeyRejectsWrongLength(t *testing.T) {
	if _, err := FromRawKey(make([]byte, 10)); err == nil {
		t.Error("expected an error constructing an identity from a malformed raw key")
	}
}

func TestIdentityString(t *testing.T) {
	id, err := GenerateRandom()
	if err != nil {
		t.Fatalf("GenerateRandom() error: %v", err)
	}
	s := id.String()
	if !bytes.Contains([]byte(s), []byte(id.PeerID().String())) {
		t.Errorf("String() = %q, want it to contain the peer ID %q", s, id.PeerID())
	}
}
