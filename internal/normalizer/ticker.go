package normalizer

import "strings"

// tickerAliases collapses the ticker spellings exchangers use onto the
// canonical codes expected by rate aggregators.
var tickerAliases = map[string]string{
	// Tether variants
	"USDT":       "USDT",
	"TETHER":     "USDT",
	"USDTTRC":    "USDTTRC20",
	"USDTTRC20":  "USDTTRC20",
	"USDTERC":    "USDTERC20",
	"USDTERC20":  "USDTERC20",
	"USDTBEP20":  "USDTBEP20",
	"USDTSOL":    "USDTSOL",

	// Russian bank cards
	"SBER":       "SBERRUB",
	"SBERBANK":   "SBERRUB",
	"SBERRUB":    "SBERRUB",
	"TINK":       "TCSBRUB",
	"TINKOFF":    "TCSBRUB",
	"TCSB":       "TCSBRUB",
	"TCSBRUB":    "TCSBRUB",
	"ALFA":       "ACRUB",
	"ALFABANK":   "ACRUB",
	"ACRUB":      "ACRUB",
	"VTB":        "VTBRUB",
	"VTBRUB":     "VTBRUB",
	"RAIFF":      "RFBRUB",
	"RAIFFEISEN": "RFBRUB",
	"RFBRUB":     "RFBRUB",
	"GAZPROM":    "GPBRUB",
	"GPBRUB":     "GPBRUB",
	"ROSBANK":    "ROSBANKRUB",
	"ROSBANKRUB": "ROSBANKRUB",
	"OTKRITIE":   "OPNBNKRUB",
	"OPNBNKRUB":  "OPNBNKRUB",
	"MKB":        "MKBRUB",
	"MKBRUB":     "MKBRUB",
	"POST":       "POSTRUB",
	"POSTBANK":   "POSTRUB",
	"POSTRUB":    "POSTRUB",
	"QIWI":       "QWRUB",
	"QWRUB":      "QWRUB",
	"YOOMONEY":   "YAMRUB",
	"YANDEX":     "YAMRUB",
	"YAMRUB":     "YAMRUB",

	// Ukrainian banks
	"PRIVAT":     "PUAH",
	"PRIVATBANK": "PUAH",
	"PRIVAT24":   "PUAH",
	"PUAH":       "PUAH",
	"MONO":       "MONOBUAH",
	"MONOBANK":   "MONOBUAH",
	"MONOBUAH":   "MONOBUAH",

	// Crypto
	"BTC":         "BTC",
	"BITCOIN":     "BTC",
	"ETH":         "ETH",
	"ETHEREUM":    "ETH",
	"LTC":         "LTC",
	"LITECOIN":    "LTC",
	"XRP":         "XRP",
	"RIPPLE":      "XRP",
	"DOGE":        "DOGE",
	"DOGECOIN":    "DOGE",
	"TRX":         "TRX",
	"TRON":        "TRX",
	"SOL":         "SOL",
	"SOLANA":      "SOL",
	"BNB":         "BNB",
	"BINANCECOIN": "BNB",
	"MATIC":       "MATIC",
	"POLYGON":     "MATIC",
	"TON":         "TON",
	"TONCOIN":     "TON",
	"NOT":         "NOT",
	"NOTCOIN":     "NOT",

	// Stablecoins
	"USDC":    "USDC",
	"USDCOIN": "USDC",
	"BUSD":    "BUSD",
	"DAI":     "DAI",
	"TUSD":    "TUSD",
	"USDP":    "USDP",

	// Fiat
	"RUB": "RUB",
	"RUR": "RUB",
	"USD": "USD",
	"EUR": "EUR",
	"UAH": "UAH",
	"KZT": "KZT",
	"GEL": "GEL",
	"TRY": "TRY",
	"AZN": "AZN",
	"BYN": "BYN",
	"AMD": "AMD",
	"UZS": "UZS",

	// Payment systems
	"PAYPAL":       "PPUSD",
	"PPUSD":        "PPUSD",
	"PAYEER":       "PRUSD",
	"PRUSD":        "PRUSD",
	"PRRUB":        "PRRUB",
	"ADVCASH":      "ADVCUSD",
	"ADVCUSD":      "ADVCUSD",
	"ADVCRUB":      "ADVCRUB",
	"PERFECT":      "PMUSD",
	"PERFECTMONEY": "PMUSD",
	"PMUSD":        "PMUSD",
	"PMEUR":        "PMEUR",
	"SKRILL":       "SKRUSD",
	"SKRUSD":       "SKRUSD",
	"NETELLER":     "NTUSD",
	"NTUSD":        "NTUSD",
	"WEBMONEY":     "WMZ",
	"WMZ":          "WMZ",
	"WMR":          "WMR",
	"WISE":         "WISEUSD",
	"WISEUSD":      "WISEUSD",
	"WISEEUR":      "WISEEUR",
	"REVOLUT":      "RVLTUSD",
	"RVLTUSD":      "RVLTUSD",

	// Cash
	"CASHRUB": "CASHRUB",
	"CASHUSD": "CASHUSD",
	"CASHEUR": "CASHEUR",
}

// networkSuffixes are preserved when a ticker arrives as "CURRENCY NETWORK"
var networkSuffixes = []string{
	"TRC20", "ERC20", "BEP20", "SOL", "POLYGON", "ARBITRUM", "OPTIMISM",
	"AVAX", "FTM", "MATIC", "BSC", "BASE", "TON", "TRON",
}

// fiatSuffixes are used to collapse "BANK FIAT" combinations, e.g.
// "SBER RUB" -> "SBERRUB"
var fiatSuffixes = []string{"RUB", "USD", "EUR", "UAH", "KZT"}

var tickerSeparators = strings.NewReplacer(
	" ", "", "-", "", "_", "", ".", "", "/", "", "(", "", ")", "",
)

// NormalizeTicker maps a raw currency or payment-method spelling onto its
// canonical code: uppercase, separators stripped, aliases collapsed.
// Unknown tickers pass through uppercased-and-stripped rather than being
// dropped.
func NormalizeTicker(raw string) string {
	ticker := strings.ToUpper(strings.TrimSpace(raw))
	if ticker == "" {
		return ""
	}
	ticker = tickerSeparators.Replace(ticker)

	if canonical, ok := tickerAliases[ticker]; ok {
		return canonical
	}

	// "USDT TRC20" style: base plus a known network suffix
	for _, network := range networkSuffixes {
		if strings.HasSuffix(ticker, network) && len(ticker) > len(network) {
			if canonical, ok := tickerAliases[ticker]; ok {
				return canonical
			}
			return ticker
		}
	}

	// "SBER RUB" style: base plus a fiat code
	for _, fiat := range fiatSuffixes {
		if strings.HasSuffix(ticker, fiat) && len(ticker) > len(fiat) {
			if canonical, ok := tickerAliases[ticker]; ok {
				return canonical
			}
		}
	}

	return ticker
}
