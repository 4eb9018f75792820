// Package firebase signs users in against the Firebase Auth REST API
// (Identity Toolkit and Secure Token endpoints) and optionally verifies
// the returned ID tokens against Google's published signing keys.
//
// Point IdentityURL and TokenURL at the Auth emulator for local work;
// emulator tokens are unsigned, so leave VerifyTokens off there.
package firebase
