// Package api provides an HTTP client for announcement endpoints.
//
// The client retries 5xx and 429 responses with jittered exponential backoff
// and returns *APIError for any other status >= 400.
//
// Exchange CMS endpoint (Binance):
//   - https://www.binance.com/bapi/composite/v1/public/cms/article/list/query
//
// Articles are addressed on the website as {base}/en/support/announcement/{code}.
package api
