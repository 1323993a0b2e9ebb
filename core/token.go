package core

import (
	"fmt"
	"strings"
)

// TokenKind identifies the asset standard a token belongs to.
type TokenKind string

const (
	// TokenFungible is a fungible token identified by its contract alone.
	TokenFungible TokenKind = "ft"
	// TokenNonFungible is a single non-fungible token within a contract.
	TokenNonFungible TokenKind = "nft"
	// TokenMulti is a token within a multi-token contract.
	TokenMulti TokenKind = "mt"
)

// MaxSubIDLen bounds the per-contract sub id so token ids stay storable
// under fixed-size key budgets.
const MaxSubIDLen = 127

// TokenID identifies one asset inside the ledger. It is an immutable value:
// created on intent decode, never mutated. The canonical string form is
// "<kind>:<contract>[:<sub>]" and Parse(String()) round-trips losslessly.
type TokenID struct {
	Kind     TokenKind
	Contract string
	Sub      string
}

// FungibleToken builds a TokenID for a fungible token contract.
func FungibleToken(contract string) TokenID {
	return TokenID{Kind: TokenFungible, Contract: contract}
}

// NonFungibleToken builds a TokenID for one NFT within a contract.
func NonFungibleToken(contract, sub string) TokenID {
	return TokenID{Kind: TokenNonFungible, Contract: contract, Sub: sub}
}

// MultiToken builds a TokenID for one token within a multi-token contract.
func MultiToken(contract, sub string) TokenID {
	return TokenID{Kind: TokenMulti, Contract: contract, Sub: sub}
}

// Validate checks structural constraints on the id.
func (t TokenID) Validate() error {
	switch t.Kind {
	case TokenFungible:
		if t.Sub != "" {
			return fmt.Errorf("ft token %q must not carry a sub id", t.Contract)
		}
	case TokenNonFungible, TokenMulti:
		if t.Sub == "" {
			return fmt.Errorf("%s token %q requires a sub id", t.Kind, t.Contract)
		}
	default:
		return fmt.Errorf("unknown token kind %q", t.Kind)
	}
	if t.Contract == "" {
		return fmt.Errorf("token contract id required")
	}
	if strings.Contains(t.Contract, ":") {
		return fmt.Errorf("token contract %q must not contain ':'", t.Contract)
	}
	if len(t.Sub) > MaxSubIDLen {
		return fmt.Errorf("token sub id too long: max %d, got %d", MaxSubIDLen, len(t.Sub))
	}
	return nil
}

// String returns the canonical text form.
func (t TokenID) String() string {
	if t.Kind == TokenFungible {
		return string(t.Kind) + ":" + t.Contract
	}
	return string(t.Kind) + ":" + t.Contract + ":" + t.Sub
}

// ParseTokenID parses the canonical "<kind>:<contract>[:<sub>]" form.
func ParseTokenID(s string) (TokenID, error) {
	kind, rest, ok := strings.Cut(s, ":")
	if !ok {
		return TokenID{}, fmt.Errorf("invalid token id %q", s)
	}
	var t TokenID
	switch TokenKind(kind) {
	case TokenFungible:
		t = TokenID{Kind: TokenFungible, Contract: rest}
	case TokenNonFungible, TokenMulti:
		contract, sub, ok := strings.Cut(rest, ":")
		if !ok {
			return TokenID{}, fmt.Errorf("token id %q is missing a sub id", s)
		}
		t = TokenID{Kind: TokenKind(kind), Contract: contract, Sub: sub}
	default:
		return TokenID{}, fmt.Errorf("unknown token kind %q", kind)
	}
	if err := t.Validate(); err != nil {
		return TokenID{}, err
	}
	return t, nil
}

// Cmp orders token ids by (kind, contract, sub). The ordering exists only so
// iteration over token sets is deterministic; it carries no business meaning.
func (t TokenID) Cmp(o TokenID) int {
	if c := strings.Compare(string(t.Kind), string(o.Kind)); c != 0 {
		return c
	}
	if c := strings.Compare(t.Contract, o.Contract); c != 0 {
		return c
	}
	return strings.Compare(t.Sub, o.Sub)
}

// MarshalText implements encoding.TextMarshaler using the canonical form.
func (t TokenID) MarshalText() ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TokenID) UnmarshalText(text []byte) error {
	parsed, err := ParseTokenID(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
