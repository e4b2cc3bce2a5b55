// Package identity manages a Netabase node's libp2p keypair and peer ID,
// optionally deriving both deterministically from a BIP-39 mnemonic so an
// operator can recreate a lost node identity from a recorded phrase.
// Grounded on a chain node's on-disk Ed25519 identity file
// (load-or-generate, raw-key persistence) and its HD wallet's mnemonic/
// seed/derivation machinery, retargeted from account derivation to a
// single fixed child (m/44'/0'/0'/0/0) used directly as the node's Ed25519
// seed.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	libp2pcrypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"

	"github.com/netabase/netabase/internal/errs"
)

// MnemonicEntropyBits is the entropy size for generated 24-word mnemonics.
const MnemonicEntropyBits = 256

// Derivation path for the single child used as a node's Ed25519 seed:
// m/44'/0'/0'/0/0. Netabase identities aren't accounts in a wallet, so
// there is never a reason to derive more than this one child per
// mnemonic — the path exists only so the scheme has room to grow.
const (
	purposeIndex  = bip32.FirstHardenedChild + 44
	coinTypeIndex = bip32.FirstHardenedChild + 0
	accountIndex  = bip32.FirstHardenedChild + 0
	changeIndex   = 0
	addressIndex  = 0
)

// Identity binds a libp2p private key to the peer ID it derives.
type Identity struct {
	priv libp2pcrypto.PrivKey
	id   peer.ID
}

func fromPriv(priv libp2pcrypto.PrivKey) (*Identity, error) {
	id, err := peer.IDFromPrivateKey(priv)
	if err != nil {
		return nil, errs.Wrap("identity.fromPriv", errs.KindMalformed, err)
	}
	return &Identity{priv: priv, id: id}, nil
}

// GenerateRandom creates a new, non-deterministic node identity.
func GenerateRandom() (*Identity, error) {
	priv, _, err := libp2pcrypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return nil, errs.Wrap("identity.GenerateRandom", errs.KindMalformed, err)
	}
	return fromPriv(priv)
}

// GenerateMnemonic creates a new 24-word BIP-39 mnemonic suitable for
// FromMnemonic.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(MnemonicEntropyBits)
	if err != nil {
		return "", errs.Wrap("identity.GenerateMnemonic", errs.KindMalformed, err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", errs.Wrap("identity.GenerateMnemonic", errs.KindMalformed, err)
	}
	return mnemonic, nil
}

// ValidateMnemonic checks a mnemonic's word count, wordlist membership,
// and checksum per BIP-39.
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// FromMnemonic deterministically derives a node identity from a BIP-39
// mnemonic and optional passphrase: the mnemonic's 512-bit seed becomes a
// BIP-32 master key, from which the child at m/44'/0'/0'/0/0 (hardened
// purpose, coin-type and account steps; non-hardened change and index
// steps) gives the 32-byte private scalar that becomes the node's Ed25519
// seed. The same mnemonic and
// passphrase always produce the same peer ID.
func FromMnemonic(mnemonic, passphrase string) (*Identity, error) {
	if !ValidateMnemonic(mnemonic) {
		return nil, errs.New("identity.FromMnemonic", errs.KindMalformed)
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, errs.Wrap("identity.FromMnemonic", errs.KindMalformed, err)
	}
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, errs.Wrap("identity.FromMnemonic", errs.KindMalformed, err)
	}

	child := master
	for _, idx := range []uint32{purposeIndex, coinTypeIndex, accountIndex, changeIndex, addressIndex} {
		child, err = child.NewChildKey(idx)
		if err != nil {
			return nil, errs.Wrap("identity.FromMnemonic", errs.KindMalformed, err)
		}
	}

	// bip32.Key.Key is 33 bytes with a leading 0x00 for private keys.
	raw := child.Key
	if len(raw) == 33 && raw[0] == 0 {
		raw = raw[1:]
	}
	if len(raw) != ed25519.SeedSize {
		return nil, errs.New("identity.FromMnemonic", errs.KindMalformed)
	}

	priv, err := libp2pcrypto.UnmarshalEd25519PrivateKey(ed25519.NewKeyFromSeed(raw))
	if err != nil {
		return nil, errs.Wrap("identity.FromMnemonic", errs.KindMalformed, err)
	}
	return fromPriv(priv)
}

// FromRawKey reconstructs an identity from the 64-byte raw Ed25519 key
// libp2pcrypto.PrivKey.Raw() produces.
func FromRawKey(raw []byte) (*Identity, error) {
	priv, err := libp2pcrypto.UnmarshalEd25519PrivateKey(raw)
	if err != nil {
		return nil, errs.Wrap("identity.FromRawKey", errs.KindMalformed, err)
	}
	return fromPriv(priv)
}

// PrivKey returns the underlying libp2p private key, for passing directly
// to libp2p.Identity(...).
func (i *Identity) PrivKey() libp2pcrypto.PrivKey {
	return i.priv
}

// PeerID returns the peer ID derived from this identity's public key.
func (i *Identity) PeerID() peer.ID {
	return i.id
}

// Raw returns the 64-byte raw Ed25519 private key, suitable for
// FromRawKey or for encrypted on-disk storage via LoadOrCreate.
func (i *Identity) Raw() ([]byte, error) {
	raw, err := i.priv.Raw()
	if err != nil {
		return nil, errs.Wrap("identity.Raw", errs.KindMalformed, err)
	}
	return raw, nil
}

func (i *Identity) String() string {
	return fmt.Sprintf("identity(%s)", i.id)
}
