package domain

// Account owns a set of link identifiers. Credential verification lives in
// the auth package; the stored document only carries the bcrypt hash.
type Account struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`

	// LinkIDs is the set of links created by this account. Deleting a
	// link removes its id from every account that references it; deleting
	// an account does not cascade to its links.
	LinkIDs []string `json:"link_ids"`
}
