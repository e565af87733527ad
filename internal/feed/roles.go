package feed

import (
	"strings"

	"github.com/Goofy-Goldberg/wechat-adb-robot/lib/uitree"
)

// Role is the semantic meaning of a view inside the subscription feed.
// The raw resource-ids WeChat assigns are opaque and change between app
// releases, so everything above this table works in terms of roles and
// the id matching is confined to here.
type Role int

const (
	RoleUnknown Role = iota
	// RolePostRow is a focusable row holding exactly one post.
	RolePostRow
	// RoleHeader carries the official account's display name.
	RoleHeader
	// RoleTitle carries a post title.
	RoleTitle
	// RoleTimestamp carries the human-readable publish time.
	RoleTimestamp
	// RoleThumbnail is the cover image of a post.
	RoleThumbnail
	// RoleBatchContainer groups several short posts under one shared
	// timestamp.
	RoleBatchContainer
)

func (r Role) String() string {
	switch r {
	case RolePostRow:
		return "post_row"
	case RoleHeader:
		return "header"
	case RoleTitle:
		return "title"
	case RoleTimestamp:
		return "timestamp"
	case RoleThumbnail:
		return "thumbnail"
	case RoleBatchContainer:
		return "batch_container"
	default:
		return "unknown"
	}
}

// RoleTable resolves view nodes to semantic roles by resource-id suffix
// and holds the few literal strings the robot needs to find controls by
// text. One table is built at startup; extractors and the controller
// never look at raw identifiers.
type RoleTable struct {
	// Suffixes maps a role to resource-id suffixes (matched with
	// strings.HasSuffix). First matching role in declaration order wins.
	Suffixes map[Role][]string `json:"suffixes"`
	// MoreMenuDesc is the content-desc of the share/more affordance
	// inside an opened article.
	MoreMenuDesc string `json:"more_menu_desc"`
	// CopyLinkText is the label of the copy-link control in the share
	// menu.
	CopyLinkText string `json:"copy_link_text"`
	// FeedTabText is the label of the subscriptions tab on the WeChat
	// home screen.
	FeedTabText string `json:"feed_tab_text"`
}

// DefaultRoleTable returns the table matching the currently supported
// WeChat build. Identifiers here are the single point of layout fragility.
func DefaultRoleTable() RoleTable {
	return RoleTable{
		Suffixes: map[Role][]string{
			RolePostRow:        {"/axy"},
			RoleHeader:         {"/a5q"},
			RoleTitle:          {"/qit"},
			RoleTimestamp:      {"/c3b"},
			RoleThumbnail:      {"/qim"},
			RoleBatchContainer: {"/an6"},
		},
		MoreMenuDesc: "更多",
		CopyLinkText: "复制链接",
		FeedTabText:  "订阅号",
	}
}

var roleOrder = []Role{
	RoleBatchContainer,
	RolePostRow,
	RoleHeader,
	RoleTitle,
	RoleTimestamp,
	RoleThumbnail,
}

// Classify returns the role of a node, RoleUnknown if none matches.
func (t RoleTable) Classify(n *uitree.Node) Role {
	if n == nil || n.ResourceID == "" {
		return RoleUnknown
	}
	for _, role := range roleOrder {
		for _, suffix := range t.Suffixes[role] {
			if strings.HasSuffix(n.ResourceID, suffix) {
				return role
			}
		}
	}
	return RoleUnknown
}

// Is reports whether n resolves to the given role.
func (t RoleTable) Is(n *uitree.Node, role Role) bool {
	return t.Classify(n) == role
}
