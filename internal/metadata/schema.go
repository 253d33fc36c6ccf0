package metadata

const baselineSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["nodeId"],
  "properties": {
    "issueKey": {"type": "string"},
    "nodeId": {"type": "string", "minLength": 1},
    "nodeName": {"type": "string"},
    "fileKey": {"type": ["string", "null"]},
    "pageName": {"type": "string"},
    "user": {"type": "string"},
    "structureJson": {"type": "string"}
  }
}`

const comparisonSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["baselineId"],
  "properties": {
    "baselineId": {"type": "string", "minLength": 1},
    "issueKey": {"type": "string"},
    "slackChannel": {"type": "string"},
    "nodeId": {"type": "string"},
    "nodeName": {"type": "string"},
    "structureJson": {"type": "string"}
  }
}`
