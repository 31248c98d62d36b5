/*
Package templating loads and renders the html/template pages of an API
documentation site.

Pages live in a template directory as "*.tmpl.html" files; shared fragments such
as layouts, headers and endpoint blocks live next to them as "*.part.html" files.
Every template can call the markup helpers from package helpers (code_tabs,
argument, status_code, language_class) and a small set of utility functions
(dict, list, add, lower, ...). Templates can be reloaded from disk at any time
with Refresh, which makes the manager suitable both for one-shot builds and for
a long-running preview server.
*/
package templating
