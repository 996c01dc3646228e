package extract

// Group row selectors, most specific first. Shared by the in-page state reader and the
// goquery text reader.
var groupLayouts = []layout{
	{group: `tr[data-group-level="0"]`, day: `tr[data-group-level="1"]`},
	{group: `tr.group-row`, day: `tr.subgroup-row`},
	{group: `.report-group`, day: `.report-subgroup`},
	{group: `[ng-repeat*="group in"]`, day: `[ng-repeat*="subGroup in"]`},
}

type layout struct {
	group string
	day   string
}

const probeStateScript = `/* probe:state */ (() => {
	const ng = window.angular;
	if (!ng || typeof ng.element !== 'function') return false;
	try {
		const injector = ng.element(document.body).injector();
		if (!injector) return false;
		const el = document.querySelector('[ng-repeat], .ng-scope');
		return !!(el && ng.element(el).scope());
	} catch (e) {
		return false;
	}
})()`

// readGroupStatesScript is formatted with a JSON array of group selectors. For every group
// row it returns the rendered name cell and a depth-limited copy of the bound state.
const readGroupStatesScript = `/* groups:state */ (() => {
	const selectors = %s;
	const clone = (v, depth) => {
		if (v === null || v === undefined) return null;
		if (typeof v === 'function') return null;
		if (typeof v !== 'object') return v;
		if (v instanceof Date) {
			const pad = n => String(n).padStart(2, '0');
			return v.getFullYear() + '-' + pad(v.getMonth() + 1) + '-' + pad(v.getDate());
		}
		if (depth <= 0) return null;
		if (Array.isArray(v)) return v.slice(0, 500).map(x => clone(x, depth - 1));
		const out = {};
		for (const k of Object.keys(v)) {
			if (k.charAt(0) === '$') continue;
			const c = clone(v[k], depth - 1);
			if (c !== null) out[k] = c;
		}
		return out;
	};
	let rows = [];
	for (const s of selectors) {
		rows = Array.from(document.querySelectorAll(s));
		if (rows.length) break;
	}
	return rows.map(row => {
		const scope = window.angular.element(row).scope() || {};
		const state = scope.group || scope.row || scope.item || (scope.$ctrl && scope.$ctrl.group) || null;
		const nameCell = row.querySelector('.group-name, .name, td, [role="cell"]') || row;
		return {
			text: (nameCell.innerText || nameCell.textContent || '').trim(),
			title: nameCell.getAttribute('title') || row.getAttribute('data-name') || '',
			state: clone(state, 5),
		};
	});
})()`

// containerHTMLScript returns the report container markup, or the whole body.
const containerHTMLScript = `/* report:html */ (() => {
	const el = document.querySelector('.report-content, .report-table, [ng-view], main') || document.body;
	return el ? el.outerHTML : '';
})()`
