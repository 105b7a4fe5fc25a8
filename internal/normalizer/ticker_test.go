package normalizer

import "testing"

func TestNormalizeTicker(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		// Separators and case
		{"usdt_trc20", "USDTTRC20"},
		{"USDT-TRC20", "USDTTRC20"},
		{"usdt trc20", "USDTTRC20"},
		{"USDT.TRC20", "USDTTRC20"},
		{"  btc  ", "BTC"},

		// Aliases
		{"Tether", "USDT"},
		{"Sberbank", "SBERRUB"},
		{"SBER", "SBERRUB"},
		{"sber rub", "SBERRUB"},
		{"Tinkoff", "TCSBRUB"},
		{"TINK", "TCSBRUB"},
		{"QIWI", "QWRUB"},
		{"YooMoney", "YAMRUB"},
		{"Privat24", "PUAH"},
		{"monobank", "MONOBUAH"},
		{"Bitcoin", "BTC"},
		{"ethereum", "ETH"},
		{"toncoin", "TON"},
		{"RUR", "RUB"},
		{"PayPal", "PPUSD"},
		{"Perfect Money", "PMUSD"},
		{"WebMoney", "WMZ"},

		// Network suffixes on unknown bases pass through
		{"SHIB BEP20", "SHIBBEP20"},

		// Unknown tickers pass through uppercased and stripped
		{"NEWCOIN", "NEWCOIN"},
		{"some-thing", "SOMETHING"},

		// Empty input
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := NormalizeTicker(tt.raw); got != tt.want {
				t.Errorf("NormalizeTicker(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
