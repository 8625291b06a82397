package contract

import "fmt"

// Intent names a generation task. Each intent carries its instruction
// template; the label is what users see in agent messages.
type Intent int

const (
	IntentDefineGoal Intent = iota + 1
	IntentProjectScope
	IntentSiteURLs
	IntentBackendCode
	IntentImprovedCode
	IntentFixCode
	IntentRESTEndpoints
)

type intentSpec struct {
	label    string
	template string
}

var intents = map[Intent]intentSpec{
	IntentDefineGoal: {
		label: "convert_user_input_to_goal",
		template: `convert_user_input_to_goal(user_request)
  Input: a user request.
  Function: converts the user request into a short summarized goal.
  Output: the goal. The output always starts with "build a website that ...".`,
	},
	IntentProjectScope: {
		label: "print_project_scope",
		template: `print_project_scope(project_description)
  Input: a user request describing a website.
  Function: decides what the website backend needs.
    is_crud_required: true if the site must create, read, update or delete data.
    is_user_login_and_logout: true if users must log in and log out.
    is_external_urls_required: true if data must come from external APIs or sites.
  Output: a JSON object with exactly these three boolean keys, e.g.
    {"is_crud_required": true, "is_user_login_and_logout": false, "is_external_urls_required": false}`,
	},
	IntentSiteURLs: {
		label: "print_site_urls",
		template: `print_site_urls(project_description)
  Input: a project description.
  Function: lists the external public API endpoints the website would call to
    obtain its data. Prefer free APIs that need no key.
  Output: a JSON array of URL strings only, e.g.
    ["https://api.example.com/v1/prices"]`,
	},
	IntentBackendCode: {
		label: "print_backend_webserver_code",
		template: `print_backend_webserver_code(code_template_and_project_description)
  Input: a CODE_TEMPLATE for a web server and a PROJECT_DESCRIPTION.
  Function: rewrites the template so the server implements the project
    description. Removes template routes the project does not need and adds
    the ones it does. Data is stored in a JSON file database.
  Output: the complete server source code only.`,
	},
	IntentImprovedCode: {
		label: "print_improved_webserver_code",
		template: `print_improved_webserver_code(project_facts_and_code)
  Input: the PROJECT facts as JSON and the current CODE of the web server.
  Function: improves the code so it fully satisfies the project facts. Adds
    missing routes and handlers, keeps the code compiling, removes dead code.
  Output: the complete improved server source code only.`,
	},
	IntentFixCode: {
		label: "print_fixed_code",
		template: `print_fixed_code(broken_code_with_bugs)
  Input: the CODE of the web server and the BUGS reported by the compiler or tests.
  Function: fixes every reported bug without changing the intended behavior.
  Output: the complete corrected source code only.`,
	},
	IntentRESTEndpoints: {
		label: "print_rest_api_endpoints",
		template: `print_rest_api_endpoints(code_input)
  Input: the source code of a web server.
  Function: lists every REST route the server exposes.
  Output: a JSON array where each element has the keys
    "is_route_dynamic" (true if the route has path parameters),
    "method" (GET, POST, PUT, DELETE, ...),
    "request_body" (example JSON body or null),
    "response" (example JSON response),
    "route" (e.g. "/item/{id}").`,
	},
}

// String returns the intent's stable label.
func (i Intent) String() string {
	if s, ok := intents[i]; ok {
		return s.label
	}
	return fmt.Sprintf("Intent(%d)", int(i))
}

// Template returns the instruction template for the intent.
func (i Intent) Template() string {
	return intents[i].template
}

// Valid reports whether i is a known intent.
func (i Intent) Valid() bool {
	_, ok := intents[i]
	return ok
}
