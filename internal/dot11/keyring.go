package dot11

import (
	"crypto/rc4"
	"crypto/sha1"
	"errors"
	"strings"
	"sync"

	"github.com/google/gopacket/layers"
	"github.com/kismetwireless/kismet-sub014/internal/packetchain"
	"golang.org/x/crypto/pbkdf2"
)

// DecryptedComponent holds the plaintext produced by a successful WEP
// decrypt attempt, attached at the DECRYPT stage (§5 step 5: "attempt a
// lightweight RC4/WEP decrypt into a fresh chunk attached as a separate
// component").
var DecryptedComponent = packetchain.RegisterComponent("dot11.decrypted")

// Keyring holds operator-supplied keys, keyed by BSSID string
// (domain.MAC.String() form). It is the core's only concession to
// decryption: traffic is never decrypted unless a key was registered
// for its BSSID, per the non-goal on unconditional decryption.
type Keyring struct {
	mu       sync.RWMutex
	wepKeys  map[string][]byte
	pmks     map[string][]byte
	failures map[string]int
}

// NewKeyring returns an empty keyring.
func NewKeyring() *Keyring {
	return &Keyring{
		wepKeys:  make(map[string][]byte),
		pmks:     make(map[string][]byte),
		failures: make(map[string]int),
	}
}

// SetWEPKey registers a raw WEP key (5 or 13 bytes) for bssid.
func (k *Keyring) SetWEPKey(bssid string, key []byte) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.wepKeys[strings.ToLower(bssid)] = append([]byte(nil), key...)
}

// SetWPAPassphrase derives a PMK from an ASCII passphrase and SSID via
// PBKDF2-HMAC-SHA1 (802.11i §H.4) and registers it for bssid. Deriving
// the PMK is as far as this keyring goes: expanding it into a PTK
// requires replaying a captured 4-way handshake, which is
// HandshakeCapture's job, not this stage's.
func (k *Keyring) SetWPAPassphrase(bssid, ssid, passphrase string) {
	pmk := DeriveWPAPMK(ssid, passphrase)
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pmks[strings.ToLower(bssid)] = pmk
}

// DeriveWPAPMK computes the WPA/WPA2-PSK pairwise master key from an
// SSID and passphrase: PBKDF2-HMAC-SHA1(passphrase, ssid, 4096, 32).
func DeriveWPAPMK(ssid, passphrase string) []byte {
	return pbkdf2.Key([]byte(passphrase), []byte(ssid), 4096, 32, sha1.New)
}

func (k *Keyring) wepKeyFor(bssid string) ([]byte, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	key, ok := k.wepKeys[strings.ToLower(bssid)]
	return key, ok
}

// FailureCount returns how many decrypt attempts against bssid have
// failed so far (§5's "per-device counter").
func (k *Keyring) FailureCount(bssid string) int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.failures[strings.ToLower(bssid)]
}

func (k *Keyring) recordFailure(bssid string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.failures[strings.ToLower(bssid)]++
}

// DecryptHandler is the DECRYPT-stage handler: if a WEP key is
// registered for the frame's BSSID, it attempts an RC4 decrypt of the
// encrypted payload and attaches the plaintext as DecryptedComponent.
// Non-WEP frames and frames with no registered key pass through
// untouched; WPA/WPA3 frames are never decrypted here since that needs
// per-session PTK material this stage doesn't have.
func DecryptHandler(keys *Keyring) packetchain.Handler {
	return func(p *packetchain.Packet) error {
		if keys == nil {
			return nil
		}
		dot11Layer := p.Raw.Layer(layers.LayerTypeDot11)
		if dot11Layer == nil {
			return nil
		}
		d11, ok := dot11Layer.(*layers.Dot11)
		if !ok || !d11.Flags.WEP() {
			return nil
		}

		bssid := bssidOf(d11)
		key, ok := keys.wepKeyFor(bssid)
		if !ok {
			return nil
		}

		plain, err := decryptWEP(d11.Payload, key)
		if err != nil {
			keys.recordFailure(bssid)
			return nil // a failed decrypt is not a chain error, just an uncovered frame
		}
		p.Set(DecryptedComponent, plain)
		return nil
	}
}

// decryptWEP strips the 4-byte IV prefix, builds the per-packet RC4 seed
// (IV||key) and returns the decrypted body in a newly allocated slice,
// leaving payload unchanged. It does not verify the ICV trailer;
// a bad key simply yields garbage the DATA_DISSECT stage will ignore.
func decryptWEP(payload, key []byte) ([]byte, error) {
	const ivLen = 4
	if len(payload) <= ivLen {
		return nil, errShortWEPFrame
	}
	iv := payload[:3]
	seed := make([]byte, 0, 3+len(key))
	seed = append(seed, iv...)
	seed = append(seed, key...)

	cipher, err := rc4.NewCipher(seed)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(payload)-ivLen)
	cipher.XORKeyStream(out, payload[ivLen:])
	return out, nil
}

func bssidOf(d11 *layers.Dot11) string {
	switch {
	case len(d11.Address1) == 6:
		return d11.Address1.String()
	case len(d11.Address3) == 6:
		return d11.Address3.String()
	default:
		return ""
	}
}

var errShortWEPFrame = errors.New("dot11: WEP frame too short to decrypt")
