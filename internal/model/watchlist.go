package model

// Nifty50 lists the NSE tradingsymbols of the NIFTY 50 universe the engine
// trades by default. The service layer rejects queue requests for symbols
// outside the configured watchlist.
var Nifty50 = []string{
	"ADANIENT", "ADANIPORTS", "APOLLOHOSP", "ASIANPAINT", "AXISBANK", "BAJAJ-AUTO", "BAJFINANCE",
	"BAJAJFINSV", "BHARTIARTL", "BPCL", "BRITANNIA", "CIPLA", "COALINDIA", "DIVISLAB", "DRREDDY",
	"EICHERMOT", "GRASIM", "HCLTECH", "HDFCBANK", "HDFCLIFE", "HEROMOTOCO", "HINDALCO", "HINDUNILVR",
	"ICICIBANK", "INDUSINDBK", "INFY", "ITC", "JSWSTEEL", "KOTAKBANK", "LT", "M&M", "MARUTI", "NESTLEIND",
	"NTPC", "ONGC", "POWERGRID", "RELIANCE", "SBILIFE", "SBIN", "SHREECEM", "SUNPHARMA", "TATACONSUM",
	"TATAMOTORS", "TATASTEEL", "TCS", "TECHM", "TITAN", "ULTRACEMCO", "UPL", "WIPRO",
}

// Watchlist is a set of tradingsymbols with O(1) membership checks.
type Watchlist map[string]bool

// NewWatchlist builds a Watchlist from a symbol list.
func NewWatchlist(symbols []string) Watchlist {
	w := make(Watchlist, len(symbols))
	for _, s := range symbols {
		w[s] = true
	}
	return w
}

// Contains reports whether symbol is in the watchlist.
func (w Watchlist) Contains(symbol string) bool { return w[symbol] }

// Symbols returns the watchlist symbols. Order is not preserved; callers
// that need a stable order should keep the original slice.
func (w Watchlist) Symbols() []string {
	out := make([]string, 0, len(w))
	for s := range w {
		out = append(out, s)
	}
	return out
}
