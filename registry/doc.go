// Package registry provides a client for the crates.io category taxonomy.
//
// The registry is the authority for category slugs a package may declare.
// This package implements the lookup protocol against the category API:
//
//	GET <base>/v1/categories/<slug>
//
// A lookup has exactly three outcomes:
//
//   - Found: HTTP 200 with a JSON body carrying a "category" object.
//   - Not found: HTTP 404 with a JSON body carrying an "errors" list.
//   - Protocol failure: anything else. The registry contract itself is
//     broken and the response cannot be trusted; callers should abort.
//
// Results (including recorded absences) are cached by request URL for the
// lifetime of the client, so repeated lookups of the same slug issue a
// single network request.
//
// # Usage
//
//	client := registry.New("https://crates.io/api")
//	cat, found, err := client.Lookup(ctx, "development-tools")
//	if err != nil {
//	    // *ProtocolError: malformed or unclassifiable response
//	}
//	if !found {
//	    // slug is not part of the taxonomy
//	}
package registry
