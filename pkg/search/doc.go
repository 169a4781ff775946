// Package search queries the dicotopo JSON:API backend on behalf of the
// explorer's search form.
//
// # Overview
//
// The package has two parts:
//
//   - Parameter parsing: ParseSearchParams turns the search form's query
//     string into SearchParams.
//   - Service: executes a search against the backend search endpoint and
//     decodes the JSON:API document.
//
// Each call to Service.Search produces one complete SearchResult. Results
// are not cached and failed requests are not retried; the caller decides
// what to show when no result is delivered.
//
// # Usage
//
//	svc, err := search.NewService(search.Options{
//		Endpoint: "https://dicotopo.cths.fr/api/1.0/search",
//		Timeout:  10 * time.Second,
//	})
//	if err != nil {
//		return err
//	}
//	params, _ := search.ParseSearchParams(r.URL.Query())
//	result, err := svc.Search(ctx, params)
//
// # Request format
//
// A search for "ambérieu" with the default options issues:
//
//	GET <endpoint>?query=amb%C3%A9rieu&include=commune%2Clocalization-commune&page%5Bsize%5D=200
//	Accept: application/vnd.api+json
//
// # Throttling
//
// Options.RequestsPerSecond bounds the request rate of a Service. Search
// blocks until the limiter grants a slot or the context is done.
package search
