package handler

type ContextKey string

var (
	ActorCtxKey   ContextKey = "actor"
	RequestCtx    ContextKey = "request"
	AssignmentCtx ContextKey = "assignment"
	TeamMemberCtx ContextKey = "teamMember"
)
