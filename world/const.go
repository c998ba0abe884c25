package world

const (
	PostCollection   = "app.bsky.feed.post"
	RepostCollection = "app.bsky.feed.repost"

	MentionReason = "mention"

	DefaultPDSURL = "https://bsky.social"
	ProfileWebURL = "https://bsky.app/profile"
)

const (
	CreateSessionProc     = "com.atproto.server.createSession"
	CreateRecordProc      = "com.atproto.repo.createRecord"
	GetPostsProc          = "app.bsky.feed.getPosts"
	GetProfileProc        = "app.bsky.actor.getProfile"
	GetRelationshipsProc  = "app.bsky.graph.getRelationships"
	ListNotificationsProc = "app.bsky.notification.listNotifications"
	UpdateSeenProc        = "app.bsky.notification.updateSeen"
	ResolveHandleProc     = "com.atproto.identity.resolveHandle"
)
