package service

// Ответы bybit v5. Все числа приходят строками.

type tickersResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []struct {
			Symbol       string `json:"symbol"`
			LastPrice    string `json:"lastPrice"`
			HighPrice24H string `json:"highPrice24h"`
			LowPrice24H  string `json:"lowPrice24h"`
			Turnover24H  string `json:"turnover24h"`
			Volume24H    string `json:"volume24h"`
			Price24HPcnt string `json:"price24hPcnt"`
		} `json:"list"`
	} `json:"result"`
}

type klineResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		Symbol string `json:"symbol"`
		// [startTime, open, high, low, close, volume, turnover]
		List [][]string `json:"list"`
	} `json:"result"`
}

// тикер из ws-стрима
type wsTicker struct {
	Topic string `json:"topic"`
	Data  struct {
		Symbol    string `json:"symbol"`
		LastPrice string `json:"lastPrice"`
	} `json:"data"`
	Ts int64 `json:"ts"`
}
