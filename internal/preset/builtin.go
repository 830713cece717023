package preset

import "github.com/bhandras/replbox/pkg/types"

// Builtin returns the presets shipped with the server, in display order.
func Builtin() []Preset {
	return []Preset{
		New("Javascript",
			types.VirtualFile{
				Name:    "index.js",
				Content: "import {a, x} from \"./other.js\";\nconsole.log(x);\n",
				IsEntry: true,
			},
			types.VirtualFile{
				Name:    "other.js",
				Content: "export function a() {\n  return \"a\";\n}\n\nexport const x = 123;\n",
			},
		),
		New("Typescript",
			types.VirtualFile{
				Name:    "index.ts",
				Content: "import {greet} from \"./greet.ts\";\n\nconst user: string = \"world\";\nconsole.log(greet(user));\n",
				IsEntry: true,
			},
			types.VirtualFile{
				Name:    "greet.ts",
				Content: "export function greet(name: string): string {\n  return `Hello, ${name}!`;\n}\n",
			},
		),
		New("JSX",
			types.VirtualFile{
				Name:    "index.jsx",
				Content: "import {h} from \"./h.js\";\n\nconst el = <div class=\"greeting\">Hi</div>;\nconsole.log(el);\n",
				IsEntry: true,
			},
			types.VirtualFile{
				Name:    "h.js",
				Content: "export function h(type, props, ...children) {\n  return {type, props, children};\n}\n",
			},
		),
		New("CSS",
			types.VirtualFile{
				Name:    "index.js",
				Content: "import \"./style.css\";\nconsole.log(\"styled\");\n",
				IsEntry: true,
			},
			types.VirtualFile{
				Name:    "style.css",
				Content: "body {\n  color: rebeccapurple;\n  display: flex;\n}\n",
			},
		),
		New("JSON",
			types.VirtualFile{
				Name:    "index.js",
				Content: "import data from \"./data.json\";\nconsole.log(data.name);\n",
				IsEntry: true,
			},
			types.VirtualFile{
				Name:    "data.json",
				Content: "{\n  \"name\": \"replbox\",\n  \"version\": 1\n}\n",
			},
		),
		New("Browserslist",
			types.VirtualFile{
				Name:    "index.js",
				Content: "const f = async () => [1, 2, 3].map((x) => x ** 2);\nf().then(console.log);\n",
				IsEntry: true,
			},
			types.VirtualFile{
				Name:    "package.json",
				Content: "{\n  \"browserslist\": [\"last 2 Chrome versions\"]\n}\n",
			},
		),
	}
}
