// Package portfolio is a server rendered portfolio editor: users sign in
// against an identity backend, fill in their profile, watch a live
// preview and download the result as a PDF.
//
// Sessions:
//   - SessionContext owns every browser session and the SessionProvider
//     they share. Call Init before serving and Close on shutdown.
//   - A Session holds the signed in Identity plus one CredentialForm and
//     one ProfileForm. Its drafts and identity are persisted to a
//     SessionStore so a restart does not sign users out.
//
// Forms:
//   - CredentialForm drives sign in, sign up and provider sign in. It runs
//     one operation at a time and rejects overlapping ones with ErrBusy.
//   - ProfileForm loads and saves the profile through a ProfileStore using
//     the identity's bearer token, refreshed when close to expiry.
//
// Rendering:
//   - RenderPreview is a pure projection of the draft used by the preview
//     partial and by the export package.
//   - RegisterPortfolioRoutes mounts the fiber handlers; RouteSessions
//     binds each request to its session through a cookie.
package portfolio
