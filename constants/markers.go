package constants

// None marks a field for which no stage produced a value.
const None = "無"

// UnknownDate is shown when the upload date cannot be read from the filename.
const UnknownDate = "未知日期"
