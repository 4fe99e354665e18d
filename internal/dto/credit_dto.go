package dto

type CreditBalanceResponse struct {
	Credits int `json:"credits"`
}

type StartSearchRequest struct {
	SearchType string `json:"search_type"`
	Query      string `json:"query"`
}

type SearchStartedResponse struct {
	Success  bool   `json:"success"`
	SearchID string `json:"search_id"`
	Credits  int    `json:"credits"`
}

type InsufficientCreditsResponse struct {
	Error          string `json:"error"`
	Message        string `json:"message"`
	CurrentCredits int    `json:"current_credits"`
}
