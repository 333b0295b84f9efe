// Package payment models the funding methods a client can name when moving
// money into the platform. Methods are opaque tags: nothing here talks to a
// payment network.
package payment

import (
	"fmt"
	"strings"
)

type Method string

const (
	MethodCard         Method = "CARD"
	MethodBankTransfer Method = "BANK_TRANSFER"
	MethodWallet       Method = "WALLET"
)

var methods = map[Method]struct{}{
	MethodCard:         {},
	MethodBankTransfer: {},
	MethodWallet:       {},
}

// ParseMethod normalises a client-supplied tag. An empty tag means the wallet balance.
func ParseMethod(s string) (Method, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return MethodWallet, nil
	}
	m := Method(s)
	if _, ok := methods[m]; !ok {
		return "", fmt.Errorf("unknown payment method %q", s)
	}
	return m, nil
}

func (m Method) String() string { return string(m) }
