// Package auth finds the Hub access token and resolves the user
// it belongs to.
//
// The token is taken, in order, from an explicit value (the
// --token flag), the HF_TOKEN environment variable, or the token
// file written by the Hub login tooling: HF_TOKEN_PATH if set,
// else $HF_HOME/token with HF_HOME defaulting to
// ~/.cache/huggingface.
package auth
