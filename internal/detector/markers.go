package detector

// extensionMarkers maps injected global names to the extension that
// plants them. The list covers assistance and automation tooling that
// matters in an interview context; framework devtools are included
// because their presence still implies an instrumented session.
var extensionMarkers = map[string]string{
	"grammarly":                      "Grammarly",
	"__REACT_DEVTOOLS_GLOBAL_HOOK__": "React DevTools",
	"__VUE_DEVTOOLS_GLOBAL_HOOK__":   "Vue DevTools",
	"__REDUX_DEVTOOLS_EXTENSION__":   "Redux DevTools",
	"LanguageToolPlugin":             "LanguageTool",
	"__SELENIUM_IDE_RECORDER__":      "Selenium IDE",
	"_phantom":                       "PhantomJS",
	"__nightmare":                    "Nightmare",
	"Cypress":                        "Cypress",
}
