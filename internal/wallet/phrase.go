// Package wallet derives ed25519 key material from BIP-39 phrases and
// generates example claim data.
package wallet

import (
	"fmt"

	"github.com/tyler-smith/go-bip39"
)

// SeedSize is the length of a derived seed in bytes.
const SeedSize = 64

// mnemonicEntropyBits gives 24-word mnemonics.
const mnemonicEntropyBits = 256

// GenerateMnemonic creates a new 24-word BIP-39 mnemonic.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(mnemonicEntropyBits)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// IsMnemonic reports whether phrase is a checksummed BIP-39 mnemonic.
func IsMnemonic(phrase string) bool {
	return bip39.IsMnemonicValid(phrase)
}

// SeedFromPhrase runs the BIP-39 PBKDF2 stretch over phrase and passphrase.
// The phrase is not checked against the word list: example networks derive
// their keys from the single word "lisk".
func SeedFromPhrase(phrase, passphrase string) []byte {
	return bip39.NewSeed(phrase, passphrase)
}
