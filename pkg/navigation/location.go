package navigation

import (
	"regexp"
	"strings"
)

const (
	HistoryInstancePrefix = "/history/process-instance"
	RuntimeInstancePrefix = "/process-instance"
)

var (
	historyInstanceId = regexp.MustCompile(`/history/process-instance/([^/]*)`)
	runtimePrefix     = regexp.MustCompile(`^#/process-instance`)
)

// ParseInstanceId extracts the process instance id of a history location such
// as "#/history/process-instance/42/audit?tab=variables". It returns "" when the
// location does not name an instance.
func ParseInstanceId(location string) string {
	match := historyInstanceId.FindStringSubmatch(location)
	if match == nil {
		return ""
	}
	id, _, _ := strings.Cut(match[1], "?")
	return id
}

// HistoryLocation returns the fragment of the history route of an instance.
func HistoryLocation(processInstanceId string) string {
	return "#" + HistoryInstancePrefix + "/" + processInstanceId
}

// ToRuntime rewrites a history location into the runtime view location of the
// same instance. The query is dropped and a /runtime segment is replaced by "/".
func ToRuntime(location string) string {
	path := stripQuery(location)
	path = strings.Replace(path, HistoryInstancePrefix, RuntimeInstancePrefix, 1)
	return strings.Replace(path, "/runtime", "/", 1)
}

// ToHistory rewrites a runtime view location into the history route of the
// same instance.
func ToHistory(location string) string {
	path := stripQuery(location)
	path = runtimePrefix.ReplaceAllLiteralString(path, "#"+HistoryInstancePrefix)
	return strings.Replace(path, "/runtime", "/", 1)
}

func stripQuery(location string) string {
	path, _, _ := strings.Cut(location, "?")
	return path
}
