package exchange

// Assemble builds the Result from the terminal entities of a run.
func Assemble(tokens TokenSet, resource ResourceToken, profile Profile) Result {
	return Result{
		AccessToken:  string(resource),
		RefreshToken: tokens.RefreshToken,
		Username:     profile.Name,
		UUID:         profile.ID,
		Profile:      profile.Raw,
	}
}
