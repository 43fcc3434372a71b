package model

// TreeNode is one user in an exported referral tree.
type TreeNode struct {
	RefID    string      `json:"ref_id"`
	Name     string      `json:"name"`
	Username string      `json:"username"`
	Role     Role        `json:"role"`
	Children []*TreeNode `json:"children"`
}
