package errors

var (
	// 领域错误，service/repository 共用
	ErrUserNotFound         = NotFound("user not found")
	ErrChatNotFound         = NotFound("chat not found")
	ErrGroupNotFound        = NotFound("group not found")
	ErrPostNotFound         = NotFound("post not found")
	ErrNotificationNotFound = NotFound("notification not found")

	ErrMissingParticipant = InvalidArg("participant id is required")
	ErrChatWithSelf       = InvalidArg("cannot start a chat with yourself")
	ErrEmptyMessage       = InvalidArg("message text cannot be empty")
	ErrMessageTooLong     = InvalidArg("message text is too long")
	ErrInvalidUsername    = InvalidArg("username must be 3-30 chars, letters, numbers, dots and underscores only")
	ErrInvalidCustomID    = InvalidArg("custom id must contain digits only")
	ErrInvalidGroupName   = InvalidArg("group name cannot be empty")
	ErrEmptyComment       = InvalidArg("comment text cannot be empty")
	ErrInvalidPostKind    = InvalidArg("post kind must be video or reel")
	ErrMissingMedia       = InvalidArg("media url is required")
	ErrUsernameTaken      = AlreadyExists("username is already taken")
	ErrCustomIDTaken      = AlreadyExists("custom id is already taken")
	ErrNotChatMember      = Forbidden("not a participant of this chat")
	ErrNotGroupOwner      = Forbidden("only the group owner can do this")
	ErrOwnerCannotLeave   = Forbidden("group owner cannot leave the group")
	ErrInviteRequired     = Forbidden("this group requires an invite")
	ErrNotRecipient       = Forbidden("notification belongs to another user")
	ErrEmailNotVerified   = Forbidden("email address is not verified")
	ErrMissingToken       = Unauthorized("missing access token")
	ErrInvalidToken       = Unauthorized("invalid access token")
	ErrRateLimitExceeded  = RateLimited("too many requests, please slow down")
	ErrChatIDConflict     = Internal("chat id belongs to another pair")
)
