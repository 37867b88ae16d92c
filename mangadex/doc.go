// Package mangadex provides a typed client for the MangaDex REST API.
//
// # Architecture
//
// The package is organized into several components:
//
//   - Route: a method, a path template with its parameters, the server it
//     targets and whether it needs a bearer token
//   - Query: the MangaDex query string dialect (key[] lists, key[sub] maps,
//     UTC timestamps, omitted nil values)
//   - Session: the OAuth2 token lifecycle, with a single refresh in flight
//     no matter how many requests need a token at once
//   - Client: the request pipeline (rate limit buckets, 503 retries, one
//     re-authentication on 401) and typed endpoint methods
//   - Catalog: tag and report reason lookup tables
//   - Errors: sentinel values and structured error types
//
// # Usage
//
// Create a client with password credentials:
//
//	logger := zerolog.New(os.Stderr)
//	client, err := mangadex.NewClient(mangadex.Credentials{
//		Username:     "user",
//		Password:     "secret",
//		ClientID:     "personal-client-...",
//		ClientSecret: "...",
//	}, logger, mangadex.WithTokenStore(mangadex.NewFileTokenStore(path)))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	manga, err := client.ListManga(ctx, mangadex.MangaListOptions{Title: "Oshi no Ko"})
//
// Public endpoints work without credentials. Authenticated endpoints log in
// lazily on first use.
//
// # Error Handling
//
// Every failure the pipeline produces matches one of the sentinels with
// errors.Is:
//
//   - ErrBadRequest, ErrUnauthorized, ErrForbidden, ErrNotFound,
//     ErrRateLimited: a *APIException carrying the decoded error payload
//   - ErrServer: a *ServerError after 503 retries ran out, or any other 5xx
//   - ErrAuthenticationRequired, ErrLoginFailure, ErrRefreshFailure: a
//     *AuthError from the session
//
// Network failures are *TransportError and undecodable success bodies are
// *DecodeError. ResponseID returns the server's correlation id for any of
// them:
//
//	if errors.Is(err, mangadex.ErrNotFound) {
//		log.Printf("missing (request %s)", mangadex.ResponseID(err))
//	}
package mangadex
