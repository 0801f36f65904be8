package bledb

var services = map[string]string{
	"1800": "Generic Access",
	"1801": "Generic Attribute",
	"1802": "Immediate Alert",
	"1803": "Link Loss",
	"1804": "Tx Power",
	"1805": "Current Time Service",
	"1806": "Reference Time Update Service",
	"1807": "Next DST Change Service",
	"1808": "Glucose",
	"1809": "Health Thermometer",
	"180a": "Device Information",
	"180d": "Heart Rate",
	"180e": "Phone Alert Status Service",
	"180f": "Battery Service",
	"1810": "Blood Pressure",
	"1811": "Alert Notification Service",
	"1812": "Human Interface Device",
	"1813": "Scan Parameters",
	"1814": "Running Speed and Cadence",
	"1815": "Automation IO",
	"1816": "Cycling Speed and Cadence",
	"1818": "Cycling Power",
	"1819": "Location and Navigation",
	"181a": "Environmental Sensing",
	"181b": "Body Composition",
	"181c": "User Data",
	"181d": "Weight Scale",
	"181e": "Bond Management",
	"181f": "Continuous Glucose Monitoring",
	"1820": "Internet Protocol Support",
	"1821": "Indoor Positioning",
	"1822": "Pulse Oximeter",
	"1826": "Fitness Machine",
	"6e400001b5a3f393e0a9e50e24dcca9e": "Nordic UART Service",
}

var characteristics = map[string]string{
	"2a00": "Device Name",
	"2a01": "Appearance",
	"2a02": "Peripheral Privacy Flag",
	"2a03": "Reconnection Address",
	"2a04": "Peripheral Preferred Connection Parameters",
	"2a05": "Service Changed",
	"2a06": "Alert Level",
	"2a07": "Tx Power Level",
	"2a08": "Date Time",
	"2a09": "Day of Week",
	"2a0a": "Day Date Time",
	"2a0c": "Exact Time 256",
	"2a0d": "DST Offset",
	"2a0e": "Time Zone",
	"2a0f": "Local Time Information",
	"2a11": "Time with DST",
	"2a12": "Time Accuracy",
	"2a13": "Time Source",
	"2a14": "Reference Time Information",
	"2a16": "Time Update Control Point",
	"2a17": "Time Update State",
	"2a18": "Glucose Measurement",
	"2a19": "Battery Level",
	"2a1c": "Temperature Measurement",
	"2a1d": "Temperature Type",
	"2a1e": "Intermediate Temperature",
	"2a21": "Measurement Interval",
	"2a22": "Boot Keyboard Input Report",
	"2a23": "System ID",
	"2a24": "Model Number String",
	"2a25": "Serial Number String",
	"2a26": "Firmware Revision String",
	"2a27": "Hardware Revision String",
	"2a28": "Software Revision String",
	"2a29": "Manufacturer Name String",
	"2a2a": "IEEE 11073-20601 Regulatory Certification Data List",
	"2a2b": "Current Time",
	"2a31": "Scan Refresh",
	"2a32": "Boot Keyboard Output Report",
	"2a33": "Boot Mouse Input Report",
	"2a34": "Glucose Measurement Context",
	"2a35": "Blood Pressure Measurement",
	"2a36": "Intermediate Cuff Pressure",
	"2a37": "Heart Rate Measurement",
	"2a38": "Body Sensor Location",
	"2a39": "Heart Rate Control Point",
	"2a3f": "Alert Status",
	"2a40": "Ringer Control Point",
	"2a41": "Ringer Setting",
	"2a42": "Alert Category ID Bit Mask",
	"2a43": "Alert Category ID",
	"2a44": "Alert Notification Control Point",
	"2a45": "Unread Alert Status",
	"2a46": "New Alert",
	"2a47": "Supported New Alert Category",
	"2a48": "Supported Unread Alert Category",
	"2a49": "Blood Pressure Feature",
	"2a4a": "HID Information",
	"2a4b": "Report Map",
	"2a4c": "HID Control Point",
	"2a4d": "Report",
	"2a4e": "Protocol Mode",
	"2a4f": "Scan Interval Window",
	"2a50": "PnP ID",
	"2a51": "Glucose Feature",
	"2a52": "Record Access Control Point",
	"2a53": "RSC Measurement",
	"2a54": "RSC Feature",
	"2a55": "SC Control Point",
	"2a5b": "CSC Measurement",
	"2a5c": "CSC Feature",
	"2a5d": "Sensor Location",
	"2a63": "Cycling Power Measurement",
	"2a65": "Cycling Power Feature",
	"2a6e": "Temperature",
	"2a6f": "Humidity",
	"6e400002b5a3f393e0a9e50e24dcca9e": "Nordic UART RX",
	"6e400003b5a3f393e0a9e50e24dcca9e": "Nordic UART TX",
}

var descriptors = map[string]string{
	"2900": "Characteristic Extended Properties",
	"2901": "Characteristic User Descriptor",
	"2902": "Client Characteristic Configuration",
	"2903": "Server Characteristic Configuration",
	"2904": "Characteristic Presentation Format",
	"2905": "Characteristic Aggregate Format",
	"2906": "Valid Range",
	"2907": "External Report Reference",
	"2908": "Report Reference",
	"2909": "Number of Digitals",
	"290a": "Value Trigger Setting",
	"290b": "Environmental Sensing Configuration",
	"290c": "Environmental Sensing Measurement",
	"290d": "Environmental Sensing Trigger Setting",
	"290e": "Time Trigger Setting",
}
