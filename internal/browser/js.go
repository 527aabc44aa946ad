package browser

import (
	"encoding/json"
	"fmt"
)

// jsString renders s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func jsQuery(selector, body string) string {
	return fmt.Sprintf(`(() => { const el = document.querySelector(%s); %s })()`, jsString(selector), body)
}

const (
	jsChecked = `return !!(el && el.checked);`

	jsEnabled = `return !!el && !el.disabled && !el.readOnly && el.getAttribute('aria-disabled') !== 'true';`

	jsVisible = `if (!el) { return false; }
const style = window.getComputedStyle(el);
if (style.visibility === 'hidden' || style.display === 'none') { return false; }
return !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);`

	jsInputValue = `return el ? String(el.value ?? '') : '';`
)

// jsHideRule injects a stylesheet hiding every node matching selector.
func jsHideRule(selector string) string {
	return fmt.Sprintf(`(() => {
const style = document.createElement('style');
style.textContent = %s + ' { display: none !important; }';
document.head.appendChild(style);
return true;
})()`, jsString(selector))
}
