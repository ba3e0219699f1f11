package mcpserver

// SnapshotFormat describes the JSON tree snapshot that render_tree reads
// and fetch_tree writes.
const SnapshotFormat = `# Tree Snapshot Format

A snapshot is a JSON array of root task nodes. Each node nests its
children recursively.

## Node fields

| Field | Type | Notes |
|---|---|---|
| taskId | string | server-assigned, e.g. ` + "`U-001`" + ` |
| title | string | |
| type | string | epic, story, task or subtask; may be absent |
| progress | integer | 0..100 |
| status | string | planned, active, done or blocked |
| domain | string | optional |
| children | array | may be absent, treated as empty |

## Rendering

One line per node down to depth 3 (subtasks); deeper nodes are not shown.
Indent is two spaces per depth. Roots also show their status:

` + "```" + `
[epic    ] U-001 - 用户系统重构 | progress=55% status=active children=2
  [story   ] U-002 - 用户注册流程优化 | progress=0% children=3
` + "```" + `

Types are padded or cut to 8 characters, titles to 30 characters.

## Example

` + "```" + `json
[
  {
    "taskId": "U-001",
    "title": "用户系统重构",
    "type": "epic",
    "progress": 55,
    "status": "active",
    "children": [
      {"taskId": "U-002", "title": "用户注册流程优化", "type": "story", "progress": 0, "children": []}
    ]
  }
]
` + "```" + `
`
