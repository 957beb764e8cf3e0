package inspect

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
)

const snapshotJS = `() => {
	const elements = [];
	const visible = el => {
		const r = el.getBoundingClientRect();
		return r.width > 0 && r.height > 0 && getComputedStyle(el).visibility !== 'hidden';
	};
	const text = el => (el.innerText || el.value || '').replace(/\s+/g, ' ').trim().slice(0, 80);

	document.querySelectorAll('button, [role], [title], a[href], input:not([type="hidden"]), textarea, select, h1, h2, h3').forEach(el => {
		if (!visible(el)) return;
		elements.push({
			tag: el.tagName.toLowerCase(),
			role: el.getAttribute('role') || '',
			text: text(el),
			title: el.getAttribute('title') || '',
			placeholder: el.getAttribute('placeholder') || '',
			disabled: !!el.disabled
		});
	});

	return { url: window.location.href, title: document.title, elements: elements };
}`

// Snapshot lists the visible interactive elements and headings of page
func Snapshot(ctx context.Context, page *rod.Page) (*PageMap, error) {
	res, err := page.Context(ctx).Eval(snapshotJS)
	if err != nil {
		return nil, fmt.Errorf("snapshot page: %w", err)
	}

	var m PageMap
	if err := res.Value.Unmarshal(&m); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &m, nil
}
