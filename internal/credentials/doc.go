// Package credentials discovers the GitHub API token used to download
// private release assets.
//
// Providers are consulted in order by a Chain and the first one holding a
// token wins. The default chain mirrors how Homebrew finds a token:
//
//  1. HOMEBREW_GITHUB_API_TOKEN, then GITHUB_TOKEN, from the environment
//  2. github.token from the user's global git config
//  3. `gh auth token` from the GitHub CLI
//  4. `git credential fill` for the web host
//
// A missing token is not an error. Requests are then sent with an empty
// Authorization value and the API decides whether to reject them.
package credentials
