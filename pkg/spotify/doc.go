// Package spotify provides a small client for the Spotify Web API.
//
// # Overview
//
// The package covers what a listening-history tool needs: the OAuth
// authorization-code flow, the recently-played endpoint and playlist
// lookups. Calls take a context, return typed errors and never retry
// on their own, apart from a single token refresh after a 401.
//
// # Quick Start
//
//	client, err := spotify.NewClient(spotify.Config{
//	    ClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
//	    ClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
//	    RedirectURI:  os.Getenv("SPOTIFY_REDIRECT_URI"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Authentication
//
// Spotify uses the OAuth 2.0 authorization-code flow:
//
//  1. Send the user to Auth().AuthURL(state)
//  2. Spotify redirects to the redirect URI with ?code=...
//  3. Exchange the code for a token
//  4. Store the token (SaveToken) and pass it back via Config.Token next time
//
// Example:
//
//	fmt.Println("Please visit:", client.Auth().AuthURL("state"))
//	code, _ := spotify.CodeFromRedirect(pastedURL)
//	token, err := client.Auth().Exchange(ctx, code)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = spotify.SaveToken(".spotify_token_cache", token)
//
// Expired access tokens are refreshed transparently when a refresh token is
// present. Set Config.OnTokenRefresh to persist the refreshed token.
//
// # Listening History
//
//	page, err := client.Player().RecentlyPlayed(ctx, 50, time.Now().Add(-26*time.Hour))
//	for _, item := range page.Items {
//	    fmt.Println(item.PlayedAt, item.Track.Name, item.Context.PlaylistID())
//	}
//
// # Error Handling
//
// Non-2xx responses are returned as *Error carrying the HTTP status:
//
//	var spErr *spotify.Error
//	if errors.As(err, &spErr) && spErr.Unauthorized() {
//	    // re-run the auth flow
//	}
//
// errors.Is(err, spotify.ErrNotFound) matches any 404.
package spotify
