// Package server provides HTTP routing, middleware, and the login redirect listener for the CLI.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [Logging] and [Recover] are the stock middleware.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns internally.
//
// # Login Redirect
//
// The companion auth service finishes the authorization code flow and redirects the browser to the app URI
// with the tokens in the URL fragment. [FragmentHandler] serves that URI: its page posts the fragment back
// to the listener, then removes it from the address bar with history.replaceState.
//
// It only accepts one grant. The CLI starts a [Server] on the app URI's host, opens the browser on the
// companion's /login, waits on [FragmentHandler.Result], and shuts the listener down.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
