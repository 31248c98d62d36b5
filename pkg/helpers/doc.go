/*
Package helpers provides the markup helper functions used by API documentation
pages: HTTP status labels, language tab navigation for multi-language code
samples, and argument descriptions for endpoint parameter lists.

All helpers are bound to an immutable Site value that carries the status code
table, the ordered set of sample languages and the language selected by default.
A Helpers value never mutates after construction and is safe for concurrent use,
so a single instance can back every page rendered during a build.

The helpers are exposed to html/template through FuncMap:

	{{code_tabs "install"}}
	<ul>
	  {{argument "limit" "Max results" (dict "default" 10)}}
	</ul>
	<p>{{status_code 404}}</p>
*/
package helpers
