package types

// VCSAuth carries credentials split out of a repository URL.
type VCSAuth struct {
	Username string
	Password string
}

// GitRef is a named reference and the commit it points to.
type GitRef struct {
	Name string
	SHA  string
}

// VCSInfo summarises a VCS requirement URL.
type VCSInfo struct {
	Backend  string
	URL      string
	Rev      string
	Auth     VCSAuth
	RevArgs  []string
	Display  string
	EggName  string
	Subdir   string
	Resolved string
}
