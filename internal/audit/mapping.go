package audit

import "strings"

// ActionResource holds action and resource derived from an HTTP route pattern.
type ActionResource struct {
	Action   string
	Resource string
}

// Route overrides for endpoints whose path does not name the action directly.
var routeOverrides = map[string]ActionResource{
	"DELETE /admin/user/{userId}":              {Action: ActionAccountDelete, Resource: "account"},
	"POST /question/{questionId}/answer/create": {Action: "create", Resource: "answer"},
	"POST /user/signup":                         {Action: ActionSignUp, Resource: "account"},
	"POST /user/signin":                         {Action: ActionSignIn, Resource: "session"},
	"POST /user/signout":                        {Action: ActionSignOut, Resource: "session"},
}

// ParseRoute returns action and resource for a ServeMux pattern such as
// "PUT /question/edit/{questionId}". The resource is the first path segment and the
// action is derived from the second segment, falling back to the HTTP method.
func ParseRoute(pattern string) ActionResource {
	if ar, ok := routeOverrides[pattern]; ok {
		return ar
	}
	method, path, ok := strings.Cut(pattern, " ")
	if !ok {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs) == 0 || segs[0] == "" {
		return ActionResource{Action: methodToAction(method), Resource: "unknown"}
	}
	resource := segs[0]
	if resource == "user" || resource == "userprofile" {
		resource = "account"
	}
	action := methodToAction(method)
	if len(segs) > 1 && !strings.HasPrefix(segs[1], "{") {
		action = segmentToAction(segs[1], action)
	}
	return ActionResource{Action: action, Resource: resource}
}

func segmentToAction(seg, fallback string) string {
	switch seg {
	case "create":
		return "create"
	case "edit":
		return "update"
	case "delete":
		return "delete"
	case "all":
		return "list"
	default:
		return fallback
	}
}

func methodToAction(method string) string {
	switch method {
	case "GET":
		return "get"
	case "POST":
		return "create"
	case "PUT", "PATCH":
		return "update"
	case "DELETE":
		return "delete"
	default:
		return strings.ToLower(method)
	}
}
