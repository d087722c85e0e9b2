package utils

// ResponseData is the JSON envelope of every REST response.
type ResponseData struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Results any    `json:"results,omitempty"`
}

// PanicIfNeeded re-raises err so the recovery middleware can render it.
func PanicIfNeeded(err any) {
	if err != nil {
		panic(err)
	}
}
